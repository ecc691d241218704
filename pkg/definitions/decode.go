package definitions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/oasstub/pkg/model"
)

// Decode reads API definitions from a JSON or YAML document.
func Decode(data []byte, asYAML bool) (*model.APIDefinitions, error) {
	var defs model.APIDefinitions
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &defs)
	} else {
		err = json.Unmarshal(data, &defs)
	}
	if err != nil {
		return nil, err
	}
	return &defs, nil
}

// IsDefinitionFile reports whether path has a .json, .yaml or .yml extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// ReadFile decodes a definitions file and returns it with the API name
// taken from the file name.
func ReadFile(path string) (string, *model.APIDefinitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	defs, err := Decode(data, ext == ".yaml" || ext == ".yml")
	if err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), defs, nil
}
