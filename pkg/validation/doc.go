// Package validation checks request path parameters against the schema of
// the matched OpenAPI operation.
//
// Only the checks a stub needs are performed: the schema type of each path
// variable, string formats (uuid, date, date-time, email, ...), patterns,
// enums and simple numeric and length bounds. A failed check is reported as
// a *Failure which renders as an RFC 7807 problem document:
//
//	{
//	  "type": "validation-error",
//	  "title": "Validation error",
//	  "status": 400,
//	  "errors": [{"name": "id", "reason": "not an integer \"abc\""}]
//	}
//
// Custom formats can be added with RegisterFormat.
package validation
