// Package admin provides the HTTP API for managing stub APIs.
//
// Definitions:
//
//	GET    /                               registered API names
//	GET    /{name}                         definitions
//	PUT    /{name}                         register or replace (JSON or YAML)
//	DELETE /{name}                         unregister
//	GET    /{name}/{property}              options, headers, data, delay,
//	PUT    /{name}/{property}              plugin or configurations
//	DELETE /{name}/{property}
//	GET    /{name}/configurations/{property}?api=/path[&method=GET]
//	PUT    /{name}/configurations/{property}?api=/path[&method=GET]
//	DELETE /{name}/configurations/{property}?api=/path[&method=GET]
//
// Observation:
//
//	GET    /metrics                        metrics of every API
//	GET    /metrics/{name}?path=&status=&method=
//	DELETE /metrics
//	GET    /records/{name}?path=
//	DELETE /records/{name}
//	DELETE /records
//	GET    /health
//
// Errors are JSON objects with a stable "error" code and a "message".
package admin
