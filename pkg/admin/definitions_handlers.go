package admin

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/getmockd/oasstub/pkg/definitions"
	"github.com/getmockd/oasstub/pkg/httputil"
	"github.com/getmockd/oasstub/pkg/model"
)

// reservedNames are admin routes that cannot be used as API names.
var reservedNames = []string{"health", "metrics", "records"}

// APIList is the body of GET /.
type APIList struct {
	APIs []string `json:"apis"`
}

func (a *API) handleListAPIs(w http.ResponseWriter, r *http.Request) {
	names, err := a.registry.Names(r.Context())
	if err != nil {
		a.writeRegistryError(w, err, "list apis", "")
		return
	}
	if names == nil {
		names = []string{}
	}
	httputil.WriteOK(w, APIList{APIs: names})
}

func (a *API) handleGetDefinitions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	defs, err := a.registry.Get(r.Context(), name)
	if err != nil {
		a.writeRegistryError(w, err, "get definitions", name)
		return
	}
	httputil.WriteOK(w, defs)
}

// checkName rejects reserved API names on writes.
func checkName(w http.ResponseWriter, name string) bool {
	if slices.Contains(reservedNames, name) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_name", fmt.Sprintf("%q is reserved", name))
		return false
	}
	return true
}

func (a *API) handlePutDefinitions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !checkName(w, name) {
		return
	}
	data, err := a.readBody(w, r)
	if err != nil {
		a.writeRegistryError(w, err, "register api", name)
		return
	}
	defs, err := definitions.Decode(data, isYAML(r.Header.Get("Content-Type")))
	if err != nil {
		a.writeRegistryError(w, fmt.Errorf("%w: %w", errInvalidBody, err), "register api", name)
		return
	}
	if err := a.registry.Save(r.Context(), name, defs); err != nil {
		a.writeRegistryError(w, err, "register api", name)
		return
	}
	saved, err := a.registry.Get(r.Context(), name)
	if err != nil {
		a.writeRegistryError(w, err, "register api", name)
		return
	}
	httputil.WriteOK(w, saved)
}

func (a *API) handleDeleteDefinitions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	deleted, err := a.registry.Delete(r.Context(), name)
	if err != nil {
		a.writeRegistryError(w, err, "delete api", name)
		return
	}
	if !deleted {
		httputil.WriteNotFound(w, "not_found", "api "+name+" is not registered")
		return
	}
	httputil.WriteNoContent(w)
}

// property reads and writes one property of a configuration level.
type property struct {
	get func(*model.CommonConfiguration) any
	// set replaces the property with the JSON value data, or clears it
	// when data is nil.
	set func(c *model.CommonConfiguration, data []byte) error
}

func field[T any](ref func(*model.CommonConfiguration) *T) property {
	return property{
		get: func(c *model.CommonConfiguration) any { return *ref(c) },
		set: func(c *model.CommonConfiguration, data []byte) error {
			var v T
			if data != nil {
				if err := json.Unmarshal(data, &v); err != nil {
					return fmt.Errorf("%w: %w", errInvalidBody, err)
				}
			}
			*ref(c) = v
			return nil
		},
	}
}

var properties = map[string]property{
	"options": field(func(c *model.CommonConfiguration) **model.Options { return &c.Options }),
	"headers": field(func(c *model.CommonConfiguration) **model.Headers { return &c.Headers }),
	"data":    field(func(c *model.CommonConfiguration) *model.Data { return &c.Data }),
	"delay":   field(func(c *model.CommonConfiguration) **model.Delay { return &c.Delay }),
	"plugin":  field(func(c *model.CommonConfiguration) **model.PluginDefinition { return &c.Plugin }),
}

func isUnset(v any) bool {
	return v == nil || reflect.ValueOf(v).IsZero()
}

func (a *API) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	name, prop := r.PathValue("name"), r.PathValue("property")
	defs, err := a.registry.Get(r.Context(), name)
	if err != nil {
		a.writeRegistryError(w, err, "get property", name)
		return
	}
	var value any
	if prop == "configurations" {
		value = defs.Configurations
	} else if p, ok := properties[prop]; ok {
		value = p.get(&defs.CommonConfiguration)
	} else {
		writeUnknownProperty(w, prop)
		return
	}
	if isUnset(value) {
		httputil.WriteNotFound(w, "not_set", fmt.Sprintf("%s is not set for api %s", prop, name))
		return
	}
	httputil.WriteOK(w, value)
}

func (a *API) handlePutProperty(w http.ResponseWriter, r *http.Request) {
	a.updateProperty(w, r, true)
}

func (a *API) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	a.updateProperty(w, r, false)
}

func (a *API) updateProperty(w http.ResponseWriter, r *http.Request, put bool) {
	name, prop := r.PathValue("name"), r.PathValue("property")
	p, known := properties[prop]
	if !known && prop != "configurations" {
		writeUnknownProperty(w, prop)
		return
	}

	var data []byte
	if put {
		if !checkName(w, name) {
			return
		}
		var err error
		if data, err = a.readBody(w, r); err != nil {
			a.writeRegistryError(w, err, "update property", name)
			return
		}
	} else if _, err := a.registry.Get(r.Context(), name); err != nil {
		a.writeRegistryError(w, err, "delete property", name)
		return
	}

	err := a.registry.Update(r.Context(), name, func(defs *model.APIDefinitions) error {
		if known {
			return p.set(&defs.CommonConfiguration, data)
		}
		var cfgs map[string]*model.APIConfiguration
		if data != nil {
			if err := json.Unmarshal(data, &cfgs); err != nil {
				return fmt.Errorf("%w: %w", errInvalidBody, err)
			}
		}
		defs.Configurations = cfgs
		return nil
	})
	if err != nil {
		a.writeRegistryError(w, err, "update property", name)
		return
	}
	if put {
		a.handleGetProperty(w, r)
		return
	}
	httputil.WriteNoContent(w)
}

// pathLevel returns the configuration level addressed by the api and
// method query parameters, creating it when create is set.
func pathLevel(defs *model.APIDefinitions, path, method string, create bool) *model.CommonConfiguration {
	cfg := defs.Configurations[path]
	if cfg == nil {
		if !create {
			return nil
		}
		if defs.Configurations == nil {
			defs.Configurations = make(map[string]*model.APIConfiguration)
		}
		cfg = &model.APIConfiguration{}
		defs.Configurations[path] = cfg
	}
	if method == "" {
		return &cfg.CommonConfiguration
	}
	if m := cfg.Method(method); m != nil || !create {
		return m
	}
	if cfg.Methods == nil {
		cfg.Methods = make(map[string]*model.CommonConfiguration)
	}
	m := &model.CommonConfiguration{}
	cfg.Methods[strings.ToUpper(method)] = m
	return m
}

func pathQuery(w http.ResponseWriter, r *http.Request) (path, method string, p property, ok bool) {
	prop := r.PathValue("property")
	p, ok = properties[prop]
	if !ok {
		writeUnknownProperty(w, prop)
		return "", "", p, false
	}
	path = r.URL.Query().Get("api")
	if !strings.HasPrefix(path, "/") {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_path", "query parameter api must be a path starting with /")
		return "", "", p, false
	}
	return path, r.URL.Query().Get("method"), p, true
}

func (a *API) handleGetPathProperty(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	path, method, p, ok := pathQuery(w, r)
	if !ok {
		return
	}
	defs, err := a.registry.Get(r.Context(), name)
	if err != nil {
		a.writeRegistryError(w, err, "get path property", name)
		return
	}
	var value any
	if level := pathLevel(defs, path, method, false); level != nil {
		value = p.get(level)
	}
	if isUnset(value) {
		httputil.WriteNotFound(w, "not_set", fmt.Sprintf("%s is not set for %s of api %s", r.PathValue("property"), path, name))
		return
	}
	httputil.WriteOK(w, value)
}

func (a *API) handlePutPathProperty(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	path, method, p, ok := pathQuery(w, r)
	if !ok || !checkName(w, name) {
		return
	}
	data, err := a.readBody(w, r)
	if err != nil {
		a.writeRegistryError(w, err, "update path property", name)
		return
	}
	err = a.registry.Update(r.Context(), name, func(defs *model.APIDefinitions) error {
		return p.set(pathLevel(defs, path, method, true), data)
	})
	if err != nil {
		a.writeRegistryError(w, err, "update path property", name)
		return
	}
	a.handleGetPathProperty(w, r)
}

func (a *API) handleDeletePathProperty(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	path, method, p, ok := pathQuery(w, r)
	if !ok {
		return
	}
	defs, err := a.registry.Get(r.Context(), name)
	if err != nil {
		a.writeRegistryError(w, err, "delete path property", name)
		return
	}
	if pathLevel(defs, path, method, false) == nil {
		httputil.WriteNotFound(w, "not_found", fmt.Sprintf("no configuration for %s of api %s", path, name))
		return
	}
	err = a.registry.Update(r.Context(), name, func(defs *model.APIDefinitions) error {
		return p.set(pathLevel(defs, path, method, false), nil)
	})
	if err != nil {
		a.writeRegistryError(w, err, "delete path property", name)
		return
	}
	httputil.WriteNoContent(w)
}

func writeUnknownProperty(w http.ResponseWriter, prop string) {
	httputil.WriteNotFound(w, "unknown_property", fmt.Sprintf("unknown property %q", prop))
}

func (a *API) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := httputil.ReadBody(w, r, a.maxBody)
	if err != nil && !errors.Is(err, httputil.ErrBodyTooLarge) {
		return nil, fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return data, err
}

func isYAML(contentType string) bool {
	return strings.Contains(contentType, "yaml")
}
