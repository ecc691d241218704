// Package cli implements the oasstub command line.
//
//	oasstub serve [--config oasstub.yaml] [--addr :8080] [--definitions ./apis]
//	oasstub validate petstore.yaml [more files...]
//	oasstub version [--json]
//
// serve assembles the stub server from a config.Config: storage backends,
// the definition store and its caches, the plugin engine, the delay
// scheduler, the orchestrator, the admin API and the Prometheus endpoint.
package cli
