// Package config loads the server configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file
//  3. environment variables prefixed OASSTUB_
//  4. explicit overrides, usually command-line flags
//
// Environment variable names map to keys by dropping the prefix, lowering
// the case and turning single underscores into dots. A double underscore
// stands for a literal underscore:
//
//	OASSTUB_STORAGE_PERSISTENT=sqlite      storage.persistent
//	OASSTUB_STUB_MAX__BODY__BYTES=1048576  stub.max_body_bytes
//
// Durations accept Go syntax ("250ms", "30s").
package config
