package validation

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paramsSpec = `
openapi: 3.0.3
info: {title: params, version: "1"}
paths:
  /pets/{id}:
    parameters:
      - {name: id, in: path, required: true, schema: {type: string}}
    get:
      parameters:
        - {name: id, in: path, required: true, schema: {type: integer, format: int64, minimum: 1}}
      responses: {"200": {description: ok}}
  /users/{uid}/days/{day}:
    get:
      parameters:
        - {name: uid, in: path, required: true, schema: {type: string, format: uuid}}
        - {name: day, in: path, required: true, schema: {type: string, format: date}}
      responses: {"200": {description: ok}}
  /codes/{code}:
    get:
      parameters:
        - {name: code, in: path, required: true, schema: {type: string, pattern: "[A-Z]{3}", maxLength: 3}}
      responses: {"200": {description: ok}}
  /colors/{color}:
    get:
      parameters:
        - {name: color, in: path, required: true, schema: {type: string, enum: [red, green]}}
      responses: {"200": {description: ok}}
`

func loadParamsSpec(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(paramsSpec))
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

func TestPathParameters(t *testing.T) {
	doc := loadParamsSpec(t)

	tests := []struct {
		name     string
		template string
		path     string
		invalid  []string
	}{
		{name: "integer ok", template: "/pets/{id}", path: "/pets/10"},
		{name: "not an integer", template: "/pets/{id}", path: "/pets/abc", invalid: []string{"id"}},
		{name: "below minimum", template: "/pets/{id}", path: "/pets/0", invalid: []string{"id"}},
		{name: "uuid and date ok", template: "/users/{uid}/days/{day}", path: "/users/123e4567-e89b-12d3-a456-426614174000/days/2024-02-29"},
		{name: "bad uuid and date", template: "/users/{uid}/days/{day}", path: "/users/nope/days/2023-02-30", invalid: []string{"uid", "day"}},
		{name: "pattern ok", template: "/codes/{code}", path: "/codes/ABC"},
		{name: "pattern is anchored", template: "/codes/{code}", path: "/codes/ABCD", invalid: []string{"code", "code"}},
		{name: "enum ok", template: "/colors/{color}", path: "/colors/red"},
		{name: "enum rejected", template: "/colors/{color}", path: "/colors/blue", invalid: []string{"color"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := doc.Paths.Value(tt.template)
			require.NotNil(t, item)
			err := PathParameters(tt.path, tt.template, item, item.Get)
			if len(tt.invalid) == 0 {
				assert.NoError(t, err)
				return
			}
			var f *Failure
			require.True(t, errors.As(err, &f), "want *Failure, got %v", err)
			assert.Equal(t, http.StatusBadRequest, f.Status)
			names := make([]string, len(f.Errors))
			for i, e := range f.Errors {
				names[i] = e.Name
			}
			assert.Equal(t, tt.invalid, names)
		})
	}
}

func TestParameters_OperationOverridesPathItem(t *testing.T) {
	doc := loadParamsSpec(t)
	item := doc.Paths.Value("/pets/{id}")

	params := Parameters(item, item.Get)
	require.Len(t, params, 1)
	assert.Equal(t, []string{"integer"}, params[0].Value.Schema.Value.Type.Slice())

	// Without an operation the path item level applies, so any string is fine.
	assert.NoError(t, PathParameters("/pets/abc", "/pets/{id}", item, nil))
}

func TestFailure_ProblemJSON(t *testing.T) {
	err := Value("id", "abc", &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeInteger}})
	var f *Failure
	require.True(t, errors.As(err, &f))

	var problem map[string]any
	require.NoError(t, json.Unmarshal(f.ProblemJSON(), &problem))
	assert.Equal(t, "validation-error", problem["type"])
	assert.Equal(t, "Validation error", problem["title"])
	assert.EqualValues(t, 400, problem["status"])
	errs := problem["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "id", errs[0].(map[string]any)["name"])
	assert.Contains(t, f.Error(), "not an integer")
}

func TestValue_Types(t *testing.T) {
	num := &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeNumber}}
	assert.NoError(t, Value("n", "1.5", num))
	assert.Error(t, Value("n", "NaN", num))

	b := &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeBoolean}}
	assert.NoError(t, Value("b", "true", b))
	assert.Error(t, Value("b", "yes", b))

	anyOf := &openapi3.Schema{AnyOf: openapi3.SchemaRefs{
		{Value: &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeInteger}}},
		{Value: &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeString}, Format: "uuid"}},
	}}
	assert.NoError(t, Value("x", "42", anyOf))
	assert.NoError(t, Value("x", "123e4567-e89b-12d3-a456-426614174000", anyOf))
	assert.Error(t, Value("x", "neither", anyOf))

	assert.NoError(t, Value("x", "anything", nil))
}

func TestValue_NumericEnum(t *testing.T) {
	integer := &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeInteger}, Enum: []any{float64(10000000), float64(1000000), 7}}
	number := &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeNumber}, Enum: []any{float64(2500000.5), 1e21}}
	str := &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeString}, Enum: []any{"1e+07"}}

	tests := []struct {
		value  string
		schema *openapi3.Schema
		valid  bool
	}{
		{"10000000", integer, true},
		{"1000000", integer, true},
		{"7", integer, true},
		{"10000001", integer, false},
		{"2500000.5", number, true},
		{"1000000000000000000000", number, true},
		{"2500000", number, false},
		{"1e+07", str, true},
		{"10000000", str, false},
	}
	for _, tt := range tests {
		err := Value("id", tt.value, tt.schema)
		if tt.valid {
			assert.NoError(t, err, tt.value)
		} else {
			assert.Error(t, err, tt.value)
		}
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format string
		value  string
		want   bool
	}{
		{"uuid", "123e4567-e89b-12d3-a456-426614174000", true},
		{"uuid", "123E4567-E89B-12D3-A456-426614174000", true},
		{"uuid", "123e4567-e89b-72d3-a456-426614174000", false},
		{"date", "2024-02-29", true},
		{"date", "2023-02-29", false},
		{"date", "2024/02/29", false},
		{"date-time", "2024-01-02T03:04:05Z", true},
		{"date-time", "2024-01-02T03:04:05.123+09:00", true},
		{"date-time", "2024-01-02T03:04:05", true},
		{"date-time", "2024-01-02", false},
		{"email", "user@example.com", true},
		{"email", "User <user@example.com>", false},
		{"email", "not-an-email", false},
		{"ipv4", "192.168.0.1", true},
		{"ipv4", "::1", false},
		{"ipv6", "::1", true},
		{"hostname", "api.example.com", true},
		{"hostname", "-bad", false},
		{"uri", "https://example.com/x", true},
		{"uri", "relative/path", false},
		{"unknown-format", "anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateFormat(tt.format, tt.value))
		})
	}
}

func TestRegisterFormat(t *testing.T) {
	RegisterFormat("even-length", func(v string) bool { return len(v)%2 == 0 })
	assert.True(t, IsKnownFormat("EVEN-LENGTH"))
	assert.True(t, ValidateFormat("even-length", "ab"))
	assert.False(t, ValidateFormat("even-length", "abc"))
}
