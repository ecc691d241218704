package validation

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/getmockd/oasstub/internal/matching"
)

// Parameters returns the parameters of op, including the path item level
// ones it does not override.
func Parameters(item *openapi3.PathItem, op *openapi3.Operation) openapi3.Parameters {
	var params openapi3.Parameters
	seen := make(map[string]bool)
	if op != nil {
		for _, ref := range op.Parameters {
			if ref == nil || ref.Value == nil {
				continue
			}
			seen[ref.Value.In+":"+ref.Value.Name] = true
			params = append(params, ref)
		}
	}
	if item != nil {
		for _, ref := range item.Parameters {
			if ref == nil || ref.Value == nil || seen[ref.Value.In+":"+ref.Value.Name] {
				continue
			}
			params = append(params, ref)
		}
	}
	return params
}

// PathParameters validates the variables of template bound by path against
// the path parameters of op. It returns a *Failure when any value is
// rejected.
func PathParameters(path, template string, item *openapi3.PathItem, op *openapi3.Operation) error {
	vars := matching.PathVariables(template, path)
	var fs failures
	for _, ref := range Parameters(item, op) {
		p := ref.Value
		if p.In != openapi3.ParameterInPath {
			continue
		}
		value, ok := vars[p.Name]
		if !ok {
			continue
		}
		if p.Schema == nil || p.Schema.Value == nil {
			continue
		}
		checkValue(&fs, p.Name, value, p.Schema.Value)
	}
	return fs.err()
}

// Value validates a single raw string value against schema.
func Value(name, value string, schema *openapi3.Schema) error {
	var fs failures
	if schema != nil {
		checkValue(&fs, name, value, schema)
	}
	return fs.err()
}

func checkValue(fs *failures, name, value string, schema *openapi3.Schema) {
	switch {
	case len(schema.AllOf) > 0:
		for _, s := range schema.AllOf {
			if s != nil && s.Value != nil {
				checkValue(fs, name, value, s.Value)
			}
		}
		return
	case len(schema.AnyOf) > 0 || len(schema.OneOf) > 0:
		candidates := schema.AnyOf
		if len(candidates) == 0 {
			candidates = schema.OneOf
		}
		for _, s := range candidates {
			if s != nil && s.Value != nil && Value(name, value, s.Value) == nil {
				return
			}
		}
		fs.add(name, "%q does not satisfy any of the alternative schemas", value)
		return
	}

	switch schemaType(schema) {
	case openapi3.TypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			fs.add(name, "not an integer %q", value)
			return
		}
		checkRange(fs, name, value, float64(n), schema)
	case openapi3.TypeNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			fs.add(name, "not a number %q", value)
			return
		}
		checkRange(fs, name, value, f, schema)
	case openapi3.TypeBoolean:
		if value != "true" && value != "false" {
			fs.add(name, "not a boolean %q", value)
		}
	case openapi3.TypeString:
		checkString(fs, name, value, schema)
	}
	checkEnum(fs, name, value, schema)
}

func schemaType(schema *openapi3.Schema) string {
	types := schema.Type.Slice()
	for _, t := range types {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return openapi3.TypeString
}

func checkRange(fs *failures, name, value string, n float64, schema *openapi3.Schema) {
	if schema.Min != nil && n < *schema.Min {
		fs.add(name, "%s is less than the minimum %v", value, *schema.Min)
	}
	if schema.Max != nil && n > *schema.Max {
		fs.add(name, "%s is greater than the maximum %v", value, *schema.Max)
	}
}

func checkString(fs *failures, name, value string, schema *openapi3.Schema) {
	if schema.Format != "" && !ValidateFormat(schema.Format, value) {
		fs.add(name, "%q is not a valid %s", value, schema.Format)
	}
	if schema.Pattern != "" {
		re, err := compilePattern(schema.Pattern)
		switch {
		case err != nil:
			fs.add(name, "invalid pattern %q in schema", schema.Pattern)
		case !re.MatchString(value):
			fs.add(name, "%q does not match pattern %q", value, schema.Pattern)
		}
	}
	n := uint64(utf8.RuneCountInString(value))
	if n < schema.MinLength {
		fs.add(name, "%q is shorter than %d characters", value, schema.MinLength)
	}
	if schema.MaxLength != nil && n > *schema.MaxLength {
		fs.add(name, "%q is longer than %d characters", value, *schema.MaxLength)
	}
}

func checkEnum(fs *failures, name, value string, schema *openapi3.Schema) {
	if len(schema.Enum) == 0 {
		return
	}
	match := func(e any) bool { return fmt.Sprint(e) == value }
	switch schemaType(schema) {
	case openapi3.TypeInteger, openapi3.TypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			break
		}
		match = func(e any) bool {
			f, ok := toFloat(e)
			return ok && f == n
		}
	}
	if slices.ContainsFunc(schema.Enum, match) {
		return
	}
	fs.add(name, "%q is not one of %v", value, schema.Enum)
}

// toFloat converts a decoded enum entry to a float64. Numbers decoded from
// JSON or YAML arrive as float64 or as one of the integer kinds.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

var patterns sync.Map // map[string]*regexp.Regexp

// compilePattern compiles an OpenAPI pattern, which must match the whole
// value.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}
