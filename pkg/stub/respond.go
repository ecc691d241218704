package stub

import (
	"errors"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"

	"github.com/getmockd/oasstub/pkg/validation"
)

// ContentTypeJSON is the preferred response media type.
const ContentTypeJSON = "application/json"

// Response is a synthesised response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Responder builds default responses.
type Responder struct {
	gen *Generator
}

// NewResponder returns a Responder generating bodies with gen. A nil gen
// uses NewGenerator().
func NewResponder(gen *Generator) *Responder {
	if gen == nil {
		gen = NewGenerator()
	}
	return &Responder{gen: gen}
}

// Respond returns the default response of op for a request accepting the
// given media ranges. failure, when not nil, is the outcome of request
// validation and raises the base status to its status.
func (r *Responder) Respond(op *openapi3.Operation, accept []string, failure error) *Response {
	base := http.StatusOK
	var f *validation.Failure
	if errors.As(failure, &f) {
		base = f.Problem().Status
	}

	status, resp, ok := SelectResponse(op, base)
	if !ok {
		if f == nil {
			f = &validation.Failure{Status: http.StatusBadRequest, Errors: []validation.InvalidParam{{
				Name:   validation.UnknownParam,
				Reason: "no response is defined for status " + strconv.Itoa(base),
			}}}
		}
		return &Response{
			Status:      http.StatusBadRequest,
			ContentType: validation.ContentTypeProblem,
			Body:        f.ProblemJSON(),
		}
	}
	if resp == nil || len(resp.Content) == 0 {
		return &Response{Status: status}
	}

	mediaType, mt, ok := SelectMediaType(resp.Content, accept)
	if !ok {
		return &Response{Status: status}
	}
	out := &Response{Status: status, ContentType: mediaType}
	if value, ok := r.example(mt); ok {
		out.Body = encode(mediaType, value)
	}
	return out
}

func (r *Responder) example(mt *openapi3.MediaType) (any, bool) {
	if mt == nil {
		return nil, false
	}
	if mt.Example != nil {
		return mt.Example, true
	}
	if len(mt.Examples) > 0 {
		names := make([]string, 0, len(mt.Examples))
		for name := range mt.Examples {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			if ex := mt.Examples[name]; ex != nil && ex.Value != nil && ex.Value.Value != nil {
				return ex.Value.Value, true
			}
		}
	}
	if mt.Schema != nil {
		return r.gen.Generate(mt.Schema), true
	}
	return nil, false
}

// SelectResponse picks the smallest documented status code at or above
// base. Range codes such as "4XX" count as their lowest code. Without one
// the "default" response is used with status base.
func SelectResponse(op *openapi3.Operation, base int) (int, *openapi3.Response, bool) {
	if op == nil || op.Responses == nil {
		return 0, nil, false
	}
	best := -1
	var bestResp *openapi3.Response
	for code, ref := range op.Responses.Map() {
		n, ok := statusCode(code)
		if !ok || n < base {
			continue
		}
		if best < 0 || n < best {
			best = n
			bestResp = nil
			if ref != nil {
				bestResp = ref.Value
			}
		}
	}
	if best >= 0 {
		return best, bestResp, true
	}
	if def := op.Responses.Default(); def != nil {
		return base, def.Value, true
	}
	return 0, nil, false
}

func statusCode(code string) (int, bool) {
	if len(code) == 3 && strings.EqualFold(code[1:], "XX") && code[0] >= '1' && code[0] <= '5' {
		return int(code[0]-'0') * 100, true
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 100 || n > 999 {
		return 0, false
	}
	return n, true
}

// SelectMediaType chooses the response media type: the first accepted one
// the content declares, then application/json, then the first declared one
// in sorted order.
func SelectMediaType(content openapi3.Content, accept []string) (string, *openapi3.MediaType, bool) {
	if len(content) == 0 {
		return "", nil, false
	}
	for _, a := range ParseAccept(accept) {
		if mt, ok := content[a]; ok {
			return a, mt, true
		}
	}
	if mt, ok := content[ContentTypeJSON]; ok {
		return ContentTypeJSON, mt, true
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys[0], content[keys[0]], true
}

// ParseAccept splits Accept header values into bare media types in the
// order given, dropping parameters.
func ParseAccept(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if mt, _, err := mime.ParseMediaType(part); err == nil {
				out = append(out, mt)
			} else if i := strings.IndexByte(part, ';'); i >= 0 {
				out = append(out, strings.ToLower(strings.TrimSpace(part[:i])))
			} else {
				out = append(out, strings.ToLower(part))
			}
		}
	}
	return out
}

// IsJSON reports whether mediaType is a JSON media type.
func IsJSON(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = mediaType
	}
	return mt == ContentTypeJSON || strings.HasSuffix(mt, "+json")
}

func encode(mediaType string, value any) []byte {
	if !IsJSON(mediaType) {
		switch v := value.(type) {
		case string:
			return []byte(v)
		case []byte:
			return v
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return []byte("null")
	}
	return data
}
