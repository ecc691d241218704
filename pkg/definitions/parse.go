package definitions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/oasstub/internal/matching"
)

// SpecError reports a specification that cannot be used.
type SpecError struct {
	// Name is the API name, if known.
	Name    string
	Message string
	Cause   error
}

func (e *SpecError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg = e.Name + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SpecError) Unwrap() error {
	return e.Cause
}

// Parse parses an OpenAPI 3.x or Swagger 2.0 document with its local
// references resolved.
func Parse(spec string) (*openapi3.T, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, &SpecError{Message: "empty specification"}
	}

	var version struct {
		OpenAPI string `yaml:"openapi"`
		Swagger string `yaml:"swagger"`
	}
	if err := yaml.Unmarshal([]byte(spec), &version); err != nil {
		return nil, &SpecError{Message: "failed to parse specification", Cause: err}
	}

	switch {
	case version.OpenAPI != "":
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData([]byte(spec))
		if err != nil {
			return nil, &SpecError{Message: "failed to load OpenAPI document", Cause: err}
		}
		return doc, nil
	case version.Swagger != "":
		return parseSwagger(spec)
	default:
		return nil, &SpecError{Message: "not an OpenAPI 3.x or Swagger 2.0 document"}
	}
}

func parseSwagger(spec string) (*openapi3.T, error) {
	data, err := yamlToJSON(spec)
	if err != nil {
		return nil, &SpecError{Message: "failed to parse Swagger document", Cause: err}
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		return nil, &SpecError{Message: "failed to parse Swagger document", Cause: err}
	}
	doc, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, &SpecError{Message: "failed to convert Swagger document", Cause: err}
	}
	if err := openapi3.NewLoader().ResolveRefsIn(doc, nil); err != nil {
		return nil, &SpecError{Message: "failed to resolve references", Cause: err}
	}
	return doc, nil
}

func yamlToJSON(s string) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Validate checks doc against the OpenAPI rules. Example values are not
// checked against their schemas.
func Validate(ctx context.Context, doc *openapi3.T) error {
	return doc.Validate(ctx, openapi3.DisableExamplesValidation())
}

// ToYAML serialises doc as YAML.
func ToYAML(doc *openapi3.T) (string, error) {
	data, err := doc.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(out), nil
}

// AdjustBasePath strips the base path of the document's servers from path.
// Servers are tried longest path first. It reports false when no server
// base path is a prefix of path.
func AdjustBasePath(path string, doc *openapi3.T) (string, bool) {
	if doc == nil || len(doc.Servers) == 0 {
		return path, true
	}
	bases := make([]string, 0, len(doc.Servers))
	for _, server := range doc.Servers {
		if bp, ok := serverBasePath(server); ok {
			bases = append(bases, bp)
		}
	}
	slices.Sort(bases)
	slices.Reverse(bases)

	for _, base := range bases {
		if base == "" || base == "/" {
			return path, true
		}
		base = strings.TrimSuffix(base, "/")
		if path == base {
			return "/", true
		}
		if strings.HasPrefix(path, base+"/") {
			return path[len(base):], true
		}
	}
	return "", false
}

func serverBasePath(server *openapi3.Server) (string, bool) {
	if server == nil {
		return "/", true
	}
	raw := server.URL
	for name, v := range server.Variables {
		if v != nil {
			raw = strings.ReplaceAll(raw, "{"+name+"}", v.Default)
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Path == "" {
		return "/", true
	}
	return u.Path, true
}

// FindPathItem returns the path template and item of doc matching path.
// path must already be adjusted for the base path.
func FindPathItem(doc *openapi3.T, path string) (string, *openapi3.PathItem, bool) {
	if doc == nil || doc.Paths == nil {
		return "", nil, false
	}
	return matching.FindMatchingPathKey(path, doc.Paths.Map())
}

// Operation returns the operation of item for the HTTP method, or nil.
// HEAD falls back to the GET operation when the path declares no HEAD.
func Operation(item *openapi3.PathItem, method string) *openapi3.Operation {
	if item == nil {
		return nil
	}
	switch m := strings.ToUpper(method); m {
	case http.MethodHead:
		if item.Head != nil {
			return item.Head
		}
		return item.Get
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return item.GetOperation(m)
	default:
		return nil
	}
}
