package validation

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// RequestParameters validates the query and header parameters of op:
// required parameters must be present and every value must satisfy the
// parameter schema.
func RequestParameters(query url.Values, headers http.Header, item *openapi3.PathItem, op *openapi3.Operation) error {
	var fs failures
	for _, ref := range Parameters(item, op) {
		p := ref.Value
		var values []string
		var what string
		switch p.In {
		case openapi3.ParameterInQuery:
			values, what = query[p.Name], "Query parameter"
		case openapi3.ParameterInHeader:
			values, what = headers.Values(p.Name), "Header"
		default:
			continue
		}
		if len(values) == 0 {
			if p.Required {
				fs.add(p.Name, "%s '%s' is required", what, p.Name)
			}
			continue
		}
		if p.Schema == nil || p.Schema.Value == nil {
			continue
		}
		schema := p.Schema.Value
		if schemaType(schema) == openapi3.TypeArray && schema.Items != nil && schema.Items.Value != nil {
			schema = schema.Items.Value
		}
		for _, v := range values {
			checkValue(&fs, p.Name, v, schema)
		}
	}
	return fs.err()
}

// Security checks that the credentials required by the security
// requirements of op, or of the document when op has none, are present.
// Only their presence is verified. A missing credential yields a *Failure
// with status 401.
func Security(doc *openapi3.T, op *openapi3.Operation, query url.Values, headers http.Header, cookies []*http.Cookie) error {
	reqs := doc.Security
	if op != nil && op.Security != nil {
		reqs = *op.Security
	}
	if len(reqs) == 0 || doc.Components == nil {
		return nil
	}
	var fs failures
	for _, req := range reqs {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ref := doc.Components.SecuritySchemes[name]
			if ref == nil || ref.Value == nil {
				continue
			}
			checkScheme(&fs, ref.Value, query, headers, cookies)
		}
	}
	if err := fs.err(); err != nil {
		var f *Failure
		if errors.As(err, &f) {
			f.Status = http.StatusUnauthorized
		}
		return err
	}
	return nil
}

func checkScheme(fs *failures, scheme *openapi3.SecurityScheme, query url.Values, headers http.Header, cookies []*http.Cookie) {
	switch scheme.Type {
	case "apiKey":
		switch scheme.In {
		case "header":
			if headers.Get(scheme.Name) == "" {
				fs.add(scheme.Name, "Header '%s' must exist", scheme.Name)
			}
		case "query":
			if !query.Has(scheme.Name) {
				fs.add(scheme.Name, "Query parameter '%s' must exist", scheme.Name)
			}
		case "cookie":
			found := false
			for _, c := range cookies {
				if c.Name == scheme.Name {
					found = true
					break
				}
			}
			if !found {
				fs.add(scheme.Name, "Cookie '%s' must exist", scheme.Name)
			}
		}
	case "http":
		var prefix string
		switch strings.ToLower(scheme.Scheme) {
		case "basic":
			prefix = "Basic"
		case "bearer":
			prefix = "Bearer"
		default:
			return
		}
		for _, v := range headers.Values("Authorization") {
			if strings.HasPrefix(v, prefix) {
				return
			}
		}
		fs.add(prefix, "'Authorization: %s' header must exist", prefix)
	}
}
