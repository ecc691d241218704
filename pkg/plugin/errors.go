package plugin

import (
	"fmt"

	"github.com/getmockd/oasstub/pkg/model"
)

// CompilationError reports a script that does not compile or does not
// evaluate to a response map.
type CompilationError struct {
	Type  model.PluginType
	Cause error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compile %s plugin: %v", e.Type, e.Cause)
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// ExecutionError reports a script that failed while running.
type ExecutionError struct {
	Type  model.PluginType
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s plugin: %v", e.Type, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
