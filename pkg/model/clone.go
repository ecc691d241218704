package model

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Clone returns a deep copy of defs. Definitions read from a store are
// shared; modify a clone and save it instead.
func (defs *APIDefinitions) Clone() (*APIDefinitions, error) {
	if defs == nil {
		return nil, nil
	}
	b, err := json.Marshal(defs)
	if err != nil {
		return nil, fmt.Errorf("clone definitions: %w", err)
	}
	var c APIDefinitions
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("clone definitions: %w", err)
	}
	return &c, nil
}
