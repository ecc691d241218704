package definitions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getmockd/oasstub/internal/matching"
	"github.com/getmockd/oasstub/pkg/model"
)

// Prepare checks defs before they are registered and returns the copy to
// store. The specification must parse and is re-serialised as YAML; every
// configuration key must match a path of the specification once the base
// path is stripped; delays must be well formed.
//
// Definitions without a specification are accepted as they are, so
// properties can be registered before the document.
func Prepare(ctx context.Context, name string, defs *model.APIDefinitions, logger *slog.Logger) (*model.APIDefinitions, error) {
	if defs == nil {
		return nil, &SpecError{Name: name, Message: "definitions are required"}
	}
	out, err := defs.Clone()
	if err != nil {
		return nil, err
	}
	if err := checkDelays(name, out); err != nil {
		return nil, err
	}
	if out.Specification == "" {
		return out, nil
	}

	doc, err := Parse(out.Specification)
	if err != nil {
		return nil, withName(err, name)
	}
	if err := Validate(ctx, doc); err != nil && logger != nil {
		logger.Warn("specification has validation issues", "api", name, "error", err)
	}

	templates := doc.Paths.Map()
	for key := range out.Configurations {
		adjusted, ok := AdjustBasePath(key, doc)
		if !ok {
			return nil, &SpecError{Name: name, Message: fmt.Sprintf("configuration %q is outside every server base path", key)}
		}
		if _, _, found := matching.FindMatchingPathKey(adjusted, templates); !found {
			return nil, &SpecError{Name: name, Message: fmt.Sprintf("configuration %q matches no path of the specification", key)}
		}
	}

	normalized, err := ToYAML(doc)
	if err != nil {
		return nil, &SpecError{Name: name, Message: "failed to serialise specification", Cause: err}
	}
	out.Specification = normalized
	return out, nil
}

func checkDelays(name string, defs *model.APIDefinitions) error {
	check := func(where string, c *model.CommonConfiguration) error {
		if c == nil {
			return nil
		}
		if err := c.Delay.Validate(); err != nil {
			return &SpecError{Name: name, Message: "invalid delay at " + where, Cause: err}
		}
		return nil
	}
	if err := check("root", &defs.CommonConfiguration); err != nil {
		return err
	}
	for path, cfg := range defs.Configurations {
		if cfg == nil {
			continue
		}
		if err := check(path, &cfg.CommonConfiguration); err != nil {
			return err
		}
		for method, m := range cfg.Methods {
			if err := check(method+" "+path, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func withName(err error, name string) error {
	var se *SpecError
	if errors.As(err, &se) && se.Name == "" {
		c := *se
		c.Name = name
		return &c
	}
	return err
}
