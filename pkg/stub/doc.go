// Package stub synthesises the default response of an OpenAPI operation.
//
// The status is the smallest documented code at or above the base status
// (200, or the status of a request validation failure), falling back to the
// "default" response. The media type is the first acceptable one the
// response declares, then application/json, then the first declared one.
// The body comes from the media type example, the first of its named
// examples, or is generated from its schema.
package stub
