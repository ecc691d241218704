// Package definitions stores API definitions and the OpenAPI documents
// parsed from them.
//
// A Store sits in front of a store.PersistentStorage with two load-through
// caches: one for the raw definitions and one for the parsed document.
// Writes go to persistent storage first and then invalidate both caches, so
// once Save or Delete returns no reader observes the previous value.
//
// Parse accepts OpenAPI 3.x and Swagger 2.0 documents in YAML or JSON;
// Swagger documents are converted to OpenAPI 3.
package definitions
