package stub

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/oasstub/pkg/validation"
)

const stubSpec = `
openapi: 3.0.3
info: {title: stub, version: "1"}
paths:
  /pets/{id}:
    get:
      responses:
        "404": {description: missing}
        "200":
          description: ok
          content:
            application/xml:
              example: "<pet/>"
            application/json:
              schema: {$ref: "#/components/schemas/Pet"}
        "400":
          description: bad
          content:
            application/json:
              examples:
                b: {value: {error: second}}
                a: {value: {error: first}}
    delete:
      responses:
        "204": {description: gone}
    put:
      responses:
        default:
          description: any
          content:
            text/plain:
              example: done
  /tags:
    get:
      responses:
        "2XX":
          description: ok
          content:
            application/json:
              example: [a, b]
components:
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        id: {type: integer, format: int64, minimum: 1}
        name: {type: string, example: Rex}
        tag: {type: string, enum: [dog, cat]}
        born: {type: string, format: date}
        owner: {type: string, format: uuid}
        code: {type: string, pattern: "^[A-Z]{3}-\\d{2}$"}
        secret: {type: string, writeOnly: true}
        friends:
          type: array
          maxItems: 2
          items: {$ref: "#/components/schemas/Pet"}
`

func loadStubSpec(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(stubSpec))
	require.NoError(t, err)
	return doc
}

func fixedGenerator() *Generator {
	return NewGenerator(
		WithClock(func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }),
		WithUUIDs(func() string { return "00000000-0000-4000-8000-000000000000" }),
	)
}

func TestRespond_SchemaBody(t *testing.T) {
	doc := loadStubSpec(t)
	r := NewResponder(fixedGenerator())

	resp := r.Respond(doc.Paths.Value("/pets/{id}").Get, nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType)

	var pet map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &pet))
	assert.EqualValues(t, 1, pet["id"])
	assert.Equal(t, "Rex", pet["name"])
	assert.Equal(t, "dog", pet["tag"])
	assert.Equal(t, "2024-05-06", pet["born"])
	assert.Equal(t, "00000000-0000-4000-8000-000000000000", pet["owner"])
	assert.Regexp(t, regexp.MustCompile(`^[A-Z]{3}-\d{2}$`), pet["code"])
	assert.NotContains(t, pet, "secret")
	// The recursive item schema is cut off.
	assert.Equal(t, []any{nil, nil}, pet["friends"])
}

func TestRespond_AcceptSelectsMediaType(t *testing.T) {
	doc := loadStubSpec(t)
	r := NewResponder(nil)

	resp := r.Respond(doc.Paths.Value("/pets/{id}").Get, []string{"text/html, application/xml;q=0.9"}, nil)
	assert.Equal(t, "application/xml", resp.ContentType)
	assert.Equal(t, "<pet/>", string(resp.Body))
}

func TestRespond_ValidationFailureRaisesStatus(t *testing.T) {
	doc := loadStubSpec(t)
	r := NewResponder(nil)
	failure := &validation.Failure{Status: http.StatusBadRequest, Errors: []validation.InvalidParam{{Name: "q", Reason: "required"}}}

	resp := r.Respond(doc.Paths.Value("/pets/{id}").Get, nil, failure)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.JSONEq(t, `{"error":"first"}`, string(resp.Body))
}

func TestRespond_NoContent(t *testing.T) {
	doc := loadStubSpec(t)
	resp := NewResponder(nil).Respond(doc.Paths.Value("/pets/{id}").Delete, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Empty(t, resp.ContentType)
	assert.Nil(t, resp.Body)
}

func TestRespond_DefaultResponse(t *testing.T) {
	doc := loadStubSpec(t)
	resp := NewResponder(nil).Respond(doc.Paths.Value("/pets/{id}").Put, nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "text/plain", resp.ContentType)
	assert.Equal(t, "done", string(resp.Body))
}

func TestRespond_RangeCode(t *testing.T) {
	doc := loadStubSpec(t)
	resp := NewResponder(nil).Respond(doc.Paths.Value("/tags").Get, nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `["a","b"]`, string(resp.Body))
}

func TestRespond_NoMatchingResponse(t *testing.T) {
	doc := loadStubSpec(t)
	failure := &validation.Failure{Status: http.StatusUnauthorized, Errors: []validation.InvalidParam{{Name: "Bearer", Reason: "missing"}}}

	resp := NewResponder(nil).Respond(doc.Paths.Value("/tags").Get, nil, failure)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, validation.ContentTypeProblem, resp.ContentType)
	assert.Contains(t, string(resp.Body), `"status":401`)
}

func TestSelectResponse_IgnoresLowerCodes(t *testing.T) {
	doc := loadStubSpec(t)
	status, _, ok := SelectResponse(doc.Paths.Value("/pets/{id}").Get, 401)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestParseAccept(t *testing.T) {
	got := ParseAccept([]string{"application/json; charset=utf-8, */*", "Text/Plain"})
	assert.Equal(t, []string{"application/json", "*/*", "text/plain"}, got)
}

func TestIsJSON(t *testing.T) {
	assert.True(t, IsJSON("application/json"))
	assert.True(t, IsJSON("application/problem+json"))
	assert.True(t, IsJSON("application/json; charset=utf-8"))
	assert.False(t, IsJSON("text/plain"))
}

func TestGenerator_Numbers(t *testing.T) {
	g := NewGenerator()
	max0, maxHalf, max5, min3 := 0.0, 0.5, 5.0, 2.5
	integer := func(s *openapi3.Schema) *openapi3.SchemaRef {
		s.Type = &openapi3.Types{openapi3.TypeInteger}
		return openapi3.NewSchemaRef("", s)
	}
	number := func(s *openapi3.Schema) *openapi3.SchemaRef {
		s.Type = &openapi3.Types{openapi3.TypeNumber}
		return openapi3.NewSchemaRef("", s)
	}

	assert.Equal(t, int64(1), g.Generate(integer(&openapi3.Schema{})))
	assert.Equal(t, int64(3), g.Generate(integer(&openapi3.Schema{Min: &min3})))
	assert.Equal(t, int64(-1), g.Generate(integer(&openapi3.Schema{Max: &max0})))
	assert.Equal(t, int64(1), g.Generate(integer(&openapi3.Schema{Max: &max5})))
	assert.Equal(t, 0.5, g.Generate(number(&openapi3.Schema{Max: &maxHalf})))
}

func TestGenerator_StringLength(t *testing.T) {
	g := NewGenerator()
	maxLen := uint64(3)
	s := &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeString}, MinLength: 10}
	assert.Len(t, g.Generate(openapi3.NewSchemaRef("", s)), 10)

	s = &openapi3.Schema{Type: &openapi3.Types{openapi3.TypeString}, MaxLength: &maxLen}
	assert.Equal(t, "str", g.Generate(openapi3.NewSchemaRef("", s)))
}

func TestGenerator_AllOf(t *testing.T) {
	doc, err := openapi3.NewLoader().LoadFromData([]byte(`
openapi: 3.0.3
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Base:
      type: object
      properties: {id: {type: integer}}
    Named:
      allOf:
        - $ref: "#/components/schemas/Base"
        - type: object
          properties: {name: {type: string}}
`))
	require.NoError(t, err)

	got := NewGenerator().Generate(doc.Components.Schemas["Named"])
	assert.Equal(t, map[string]any{"id": int64(1), "name": "string"}, got)
}

func TestMatchingString(t *testing.T) {
	for _, pattern := range []string{
		`^[a-z]+@example\.com$`,
		`\d{4}-\d{2}`,
		`(foo|bar)baz?`,
		`[^0-9]{2}`,
		`x*y+`,
	} {
		t.Run(pattern, func(t *testing.T) {
			s, ok := MatchingString(pattern)
			require.True(t, ok)
			assert.Regexp(t, regexp.MustCompile(`^(?:`+pattern+`)$`), s)
		})
	}

	_, ok := MatchingString(`(`)
	assert.False(t, ok)
}
