// Package cache serves repeated safe requests from stored responses.
//
// Only responses the outcome classifier counts as successes are stored, so
// failures always reach the handler and keep being traced as failures. Keys
// are derived from the method, path, sorted query and any varying headers.
package cache
