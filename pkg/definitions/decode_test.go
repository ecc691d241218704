package definitions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/oasstub/pkg/model"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	fromYAML, err := Decode([]byte("specification: x\nheaders:\n  response:\n    X-A: [\"1\"]\nconfigurations:\n  /pets:\n    methods:\n      get:\n        delay:\n          type: fixed\n          duration: 5\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "x", fromYAML.Specification)
	assert.Equal(t, []string{"1"}, fromYAML.Headers.Response["X-A"])
	assert.Equal(t, model.DelayFixed, fromYAML.Configurations["/pets"].Method("GET").Delay.Type)

	fromJSON, err := Decode([]byte(`{"specification":"x","headers":{"response":{"X-A":["1"]}}}`), false)
	require.NoError(t, err)
	assert.Equal(t, fromYAML.Headers, fromJSON.Headers)

	_, err = Decode([]byte("{"), false)
	require.Error(t, err)
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "petstore.yml")
	require.NoError(t, os.WriteFile(path, []byte("specification: x\n"), 0o600))

	name, defs, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "petstore", name)
	assert.Equal(t, "x", defs.Specification)

	assert.True(t, IsDefinitionFile("a.JSON"))
	assert.True(t, IsDefinitionFile("a.yaml"))
	assert.False(t, IsDefinitionFile("a.txt"))

	_, _, err = ReadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
