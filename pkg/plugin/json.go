package plugin

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/ohler55/ojg/jp"
)

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func fromJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// jsonPath returns the value at path in v. A path matching more than one
// node returns all of them as a list; no match returns nil.
func jsonPath(v any, path string) (any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}
	if s, ok := v.(string); ok {
		if decoded, err := fromJSON(s); err == nil {
			v = decoded
		}
	}
	results := expr.Get(v)
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}
