package admin

import (
	"errors"
	"net/http"

	"github.com/getmockd/oasstub/pkg/definitions"
	"github.com/getmockd/oasstub/pkg/httputil"
	"github.com/getmockd/oasstub/pkg/plugin"
	"github.com/getmockd/oasstub/pkg/store"
)

// Messages returned in place of internal errors.
const (
	ErrMsgInternalError = "An internal error occurred"
	ErrMsgInvalidJSON   = "Invalid JSON in request body"
	ErrMsgBodyTooLarge  = "Request body is too large"
)

// errInvalidBody marks decoding failures raised inside registry updates.
var errInvalidBody = errors.New("invalid body")

// writeRegistryError maps an error of a registry or observation call to a
// response. Storage failures are logged and reported generically.
func (a *API) writeRegistryError(w http.ResponseWriter, err error, operation, name string) {
	var (
		compileErr *plugin.CompilationError
		specErr    *definitions.SpecError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteNotFound(w, "not_found", "api "+name+" is not registered")
	case errors.Is(err, store.ErrInvalidName):
		httputil.WriteError(w, http.StatusBadRequest, "invalid_name", err.Error())
	case errors.Is(err, httputil.ErrBodyTooLarge):
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", ErrMsgBodyTooLarge)
	case errors.Is(err, errInvalidBody):
		a.log.Debug("invalid request body", "operation", operation, "api", name, "error", err)
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", ErrMsgInvalidJSON)
	case errors.As(err, &compileErr):
		httputil.WriteError(w, http.StatusBadRequest, "compilation_error", err.Error())
	case errors.As(err, &specErr):
		httputil.WriteError(w, http.StatusBadRequest, "invalid_definitions", err.Error())
	default:
		a.log.Error("operation failed", "operation", operation, "api", name, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "storage_error", ErrMsgInternalError)
	}
}
