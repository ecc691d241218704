package engine

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getmockd/oasstub/pkg/model"
)

// StatusMalformed is the status of a protocol failure. It is outside the
// range HTTP clients accept.
const StatusMalformed = 1000

// Request is a stub call as seen by the Orchestrator.
type Request struct {
	Method string
	// Path is relative to the stub prefix: "/{api}/{api path}".
	Path        string
	Query       url.Values
	Headers     http.Header
	Cookies     []*http.Cookie
	ContentType string
	Body        []byte
}

// Response is the outcome of a stub call.
type Response struct {
	Status      int
	Headers     http.Header
	ContentType string
	Body        []byte

	// Latency is the interval the transport waits before each body byte.
	Latency time.Duration
	// Failure is set when the transport must simulate a failure.
	Failure *model.Failure

	// API and Path identify the resolved call. Both are empty when no API
	// matched.
	API  string
	Path string
}

func errorResponse(status int) *Response {
	return &Response{Status: status, Headers: http.Header{}}
}

// SplitPath splits a path relative to the stub prefix into the API name and
// the API path. The API path keeps its leading slash. It reports false when
// path has no API path.
func SplitPath(path string) (name, apiPath string, ok bool) {
	path = strings.TrimPrefix(path, "/")
	i := strings.IndexByte(path, '/')
	if i <= 0 {
		return "", "", false
	}
	return path[:i], path[i:], true
}

// bodyless reports whether request bodies of method are ignored.
func bodyless(method string) bool {
	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
