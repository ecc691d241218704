// Package matching resolves concrete request paths against OpenAPI path
// templates.
//
// A template segment of the form {name} matches exactly one path segment.
// Every other segment must be byte-equal, and the number of segments must
// agree, so a trailing slash is significant:
//
//	FindMatchingPath("/path2/2/", []string{"/path2/{val}/"}) // "/path2/{val}/", true
//	FindMatchingPath("/path2/2", []string{"/path2/{val}/"})  // "", false
//
// When several templates match the same path the first one in sorted order
// wins. The tie-break is implementation-defined; callers should not register
// overlapping templates.
package matching
