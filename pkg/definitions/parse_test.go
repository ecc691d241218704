package definitions

import (
	"context"
	"os"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/oasstub/pkg/model"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestParse_OpenAPI3(t *testing.T) {
	doc, err := Parse(readFixture(t, "petstore.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Petstore", doc.Info.Title)
	require.NotNil(t, doc.Paths.Value("/pets/{id}"))
	require.NoError(t, Validate(context.Background(), doc))

	// references are resolved
	op := doc.Paths.Value("/pets/{id}").Get
	schema := op.Responses.Value("200").Value.Content.Get("application/json").Schema
	require.NotNil(t, schema.Value)
	assert.Contains(t, schema.Value.Properties, "name")
}

func TestParse_Swagger2(t *testing.T) {
	doc, err := Parse(readFixture(t, "swagger.json"))
	require.NoError(t, err)

	require.NotNil(t, doc.Paths.Value("/items/{id}"))
	adjusted, ok := AdjustBasePath("/api/items/42", doc)
	require.True(t, ok)
	assert.Equal(t, "/items/42", adjusted)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{name: "empty", spec: "  "},
		{name: "not yaml", spec: "openapi: [unclosed"},
		{name: "no version", spec: "info:\n  title: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.spec)
			require.Error(t, err)
			var se *SpecError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestAdjustBasePath(t *testing.T) {
	doc := func(urls ...string) *openapi3.T {
		d := &openapi3.T{}
		for _, u := range urls {
			d.Servers = append(d.Servers, &openapi3.Server{URL: u})
		}
		return d
	}

	tests := []struct {
		name   string
		doc    *openapi3.T
		path   string
		want   string
		wantOK bool
	}{
		{name: "no servers", doc: doc(), path: "/pets", want: "/pets", wantOK: true},
		{name: "root server", doc: doc("http://localhost/"), path: "/pets", want: "/pets", wantOK: true},
		{name: "base stripped", doc: doc("http://localhost/v1"), path: "/v1/pets", want: "/pets", wantOK: true},
		{name: "trailing slash on server", doc: doc("http://localhost/v1/"), path: "/v1/pets", want: "/pets", wantOK: true},
		{name: "base only", doc: doc("http://localhost/v1"), path: "/v1", want: "/", wantOK: true},
		{name: "outside base", doc: doc("http://localhost/v1"), path: "/v2/pets", wantOK: false},
		{name: "segment prefix is not a base", doc: doc("http://localhost/v1"), path: "/v10/pets", wantOK: false},
		{name: "longest base first", doc: doc("http://localhost/api", "http://localhost/api/v2"), path: "/api/v2/pets", want: "/pets", wantOK: true},
		{name: "relative server", doc: doc("/v1"), path: "/v1/pets", want: "/pets", wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AdjustBasePath(tt.path, tt.doc)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFindPathItemAndOperation(t *testing.T) {
	doc, err := Parse(readFixture(t, "petstore.yaml"))
	require.NoError(t, err)

	tmpl, item, ok := FindPathItem(doc, "/pets/12")
	require.True(t, ok)
	assert.Equal(t, "/pets/{id}", tmpl)

	assert.NotNil(t, Operation(item, "get"))
	assert.NotNil(t, Operation(item, "DELETE"))
	assert.Nil(t, Operation(item, "POST"))
	assert.Nil(t, Operation(item, "BREW"))
	assert.Same(t, item.Get, Operation(item, "HEAD"), "HEAD falls back to GET")
	assert.Nil(t, Operation(nil, "GET"))

	_, _, ok = FindPathItem(doc, "/owners")
	assert.False(t, ok)
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()
	spec := readFixture(t, "petstore.yaml")

	t.Run("normalises the specification", func(t *testing.T) {
		in := &model.APIDefinitions{
			Specification: spec,
			Configurations: map[string]*model.APIConfiguration{
				"/v1/pets/{id}": {},
			},
		}
		out, err := Prepare(ctx, "petstore", in, nil)
		require.NoError(t, err)
		assert.NotSame(t, in, out)
		assert.Equal(t, spec, in.Specification, "input must not be modified")

		doc, err := Parse(out.Specification)
		require.NoError(t, err)
		assert.Equal(t, "Petstore", doc.Info.Title)
	})

	t.Run("unknown configuration path", func(t *testing.T) {
		in := &model.APIDefinitions{
			Specification: spec,
			Configurations: map[string]*model.APIConfiguration{
				"/v1/owners": {},
			},
		}
		_, err := Prepare(ctx, "petstore", in, nil)
		var se *SpecError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "petstore", se.Name)
	})

	t.Run("configuration outside base path", func(t *testing.T) {
		in := &model.APIDefinitions{
			Specification: spec,
			Configurations: map[string]*model.APIConfiguration{
				"/pets": {},
			},
		}
		_, err := Prepare(ctx, "petstore", in, nil)
		assert.Error(t, err)
	})

	t.Run("invalid delay", func(t *testing.T) {
		in := &model.APIDefinitions{
			CommonConfiguration: model.CommonConfiguration{
				Delay: &model.Delay{Type: model.DelayRandom, Min: 10, Max: 5},
			},
		}
		_, err := Prepare(ctx, "petstore", in, nil)
		assert.Error(t, err)
	})

	t.Run("no specification", func(t *testing.T) {
		in := &model.APIDefinitions{CommonConfiguration: model.CommonConfiguration{Data: model.Data{"a": 1}}}
		out, err := Prepare(ctx, "petstore", in, nil)
		require.NoError(t, err)
		assert.Empty(t, out.Specification)
	})

	t.Run("bad specification", func(t *testing.T) {
		_, err := Prepare(ctx, "petstore", &model.APIDefinitions{Specification: "nope: true"}, nil)
		var se *SpecError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "petstore", se.Name)
	})
}
