// Package outcome classifies finished HTTP responses as success or failure.
//
// A response is a success when its status passes a [SuccessFunc] (by default
// any 1xx, 2xx or 3xx status). Failure responses have their buffered body
// decoded into an [Error] payload, and produce an [Event] that the caller
// records on its span and log.
//
// The package performs no I/O and holds no state; every function is safe for
// concurrent use.
package outcome
