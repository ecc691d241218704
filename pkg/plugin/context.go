package plugin

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/getmockd/oasstub/pkg/model"
	"github.com/getmockd/oasstub/pkg/store"
)

// Request is the inbound request as seen by a plugin.
type Request struct {
	Method      string
	Path        string
	Template    string
	PathParams  map[string]string
	Query       map[string][]string
	Headers     map[string][]string
	Cookies     map[string]string
	ContentType string
	Body        []byte
}

// Response is a stub response.
type Response struct {
	Status      int
	Headers     map[string][]string
	ContentType string
	Body        []byte
}

// Clone returns a copy of r that shares no maps or slices with it.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := *r
	c.Headers = make(map[string][]string, len(r.Headers))
	for k, v := range r.Headers {
		c.Headers[k] = append([]string(nil), v...)
	}
	c.Body = append([]byte(nil), r.Body...)
	return &c
}

// Context is everything a plugin execution can see.
type Context struct {
	// API is the name of the API being served. Session keys are scoped to it.
	API      string
	Request  *Request
	Response *Response
	Data     model.Data
	Session  store.SessionStorage
}

func (pc *Context) requestMap() map[string]any {
	r := pc.Request
	if r == nil {
		r = &Request{}
	}
	return map[string]any{
		"method":      r.Method,
		"path":        r.Path,
		"template":    r.Template,
		"pathParams":  stringMap(r.PathParams),
		"query":       multiMap(r.Query),
		"headers":     multiMap(r.Headers),
		"cookies":     stringMap(r.Cookies),
		"contentType": r.ContentType,
		"body":        string(r.Body),
		"json":        decodeIfJSON(r.ContentType, r.Body),
	}
}

func (pc *Context) responseMap() map[string]any {
	r := pc.Response
	if r == nil {
		r = &Response{}
	}
	return map[string]any{
		"status":      int64(r.Status),
		"headers":     multiMap(r.Headers),
		"contentType": r.ContentType,
		"body":        string(r.Body),
		"json":        decodeIfJSON(r.ContentType, r.Body),
	}
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func multiMap(m map[string][]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		vals := make([]any, len(v))
		for i, s := range v {
			vals[i] = s
		}
		out[k] = vals
	}
	return out
}

func decodeIfJSON(contentType string, body []byte) any {
	if len(body) == 0 || !isJSON(contentType) {
		return nil
	}
	v, err := fromJSON(string(body))
	if err != nil {
		return nil
	}
	return v
}

func isJSON(contentType string) bool {
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

// apply returns base changed by a script result.
func apply(base *Response, result map[string]any) (*Response, error) {
	out := base.Clone()
	if out == nil {
		out = &Response{Status: http.StatusOK, Headers: map[string][]string{}}
	}
	if len(result) == 0 {
		return out, nil
	}

	if v, ok := result["status"]; ok && v != nil {
		status, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		if status < 100 || status > 999 {
			return nil, fmt.Errorf("status %d out of range", status)
		}
		out.Status = status
	}
	if v, ok := result["contentType"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("contentType must be a string, got %T", v)
		}
		out.ContentType = s
	}
	if v, ok := result["headers"]; ok && v != nil {
		h, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("headers must be a map, got %T", v)
		}
		headers := maps.Clone(out.Headers)
		for name, value := range h {
			name = http.CanonicalHeaderKey(name)
			switch value := value.(type) {
			case nil:
				delete(headers, name)
			case []any:
				vals := make([]string, 0, len(value))
				for _, item := range value {
					vals = append(vals, fmt.Sprint(item))
				}
				headers[name] = vals
			default:
				headers[name] = []string{fmt.Sprint(value)}
			}
		}
		out.Headers = headers
	}
	if v, ok := result["body"]; ok {
		switch body := v.(type) {
		case nil:
			out.Body = nil
		case string:
			out.Body = []byte(body)
		case []byte:
			out.Body = body
		default:
			s, err := toJSON(body)
			if err != nil {
				return nil, fmt.Errorf("body: %w", err)
			}
			out.Body = []byte(s)
			if _, set := result["contentType"]; !set {
				out.ContentType = "application/json"
			}
		}
	}
	return out, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// sessionKey scopes plugin session keys to the API.
func sessionKey(api, key string) string {
	return "oasstub.plugin:" + api + ":" + key
}

type sessionAccess struct {
	ctx context.Context
	pc  *Context
}

func (s sessionAccess) get(key string) (any, error) {
	if s.pc.Session == nil {
		return nil, nil
	}
	var v any
	if _, err := s.pc.Session.Get(s.ctx, sessionKey(s.pc.API, key), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s sessionAccess) put(key string, value any) error {
	if s.pc.Session == nil {
		return nil
	}
	return s.pc.Session.Put(s.ctx, sessionKey(s.pc.API, key), value, 0)
}

func (s sessionAccess) remove(key string) (bool, error) {
	if s.pc.Session == nil {
		return false, nil
	}
	return s.pc.Session.Delete(s.ctx, sessionKey(s.pc.API, key))
}
