// Package secret resolves credentials referenced from configuration, such as
// the collector endpoint and authorization headers used by trace exporters.
//
// Values go through strict environment expansion (see ExpandEnvStrict) and
// then secret reference resolution (see Resolver). References use the prefix
// "secretref:":
//   - Full value:  secretref:env:COLLECTOR_TOKEN
//   - Inline use:  Bearer secretref:file:/run/secrets/collector-token
//
// The env and file providers are built in; others plug in via Provider and
// Registry.
package secret
