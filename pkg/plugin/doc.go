// Package plugin compiles and runs scripts that customize stub responses.
//
// A plugin is a script in one of the supported languages (expr or CEL)
// whose result is a map describing changes to the in-progress response:
//
//	{"status": 201, "headers": {"X-Id": "42"}, "body": toJSON(data["pet"])}
//
// Absent keys keep the corresponding part of the response; a nil or empty
// result keeps it entirely. Scripts see these names:
//
//	request   method, path, template, pathParams, query, headers, cookies,
//	          contentType, body and json (the decoded body, if JSON)
//	response  status, headers, contentType, body and json
//	data      the stub data of the API, keyed by label
//	session   get/put/delete on session storage scoped to the API
//	          (expr: session.Get, session.Put, session.Delete)
//	toJSON(v), fromJSON(s), jsonPath(v, path)
//
// Both languages type-check the result. In expr a script may be a bare nil
// or a conditional with a nil branch. CEL needs a common type for the
// branches of a conditional, so a null branch next to a map literal is
// written as cond ? dyn({"status": 204}) : null.
//
// Compiled programs are cached by the digest of language and script and are
// immutable; every execution evaluates with its own state.
package plugin
