// Package engine executes stub API calls.
//
// An Orchestrator runs every call through the same stages:
//
//	RESOLVE   find the API, its path item and operation
//	VALIDATE  check path parameters (and query, header and security
//	          requirements) unless validation is switched off
//	CUSTOMIZE synthesise the default response, merge configured headers,
//	          apply a configured failure, run the plugin
//	DELAY     hold the response until the configured delay has passed
//	RECORD    write the metric and, when enabled, the record
//	RESPOND   hand the response to the transport
//
// Errors at any stage become a response; the call is recorded regardless.
//
// Handler binds an Orchestrator to net/http under a path prefix, Registry
// validates and stores definitions, and Server runs the HTTP listener.
package engine
