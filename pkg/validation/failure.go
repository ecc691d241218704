package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ContentTypeProblem is the media type of a rendered Failure.
const ContentTypeProblem = "application/problem+json"

// Problem document fields.
const (
	ProblemType  = "validation-error"
	ProblemTitle = "Validation error"
)

// UnknownParam names an invalid value that is not bound to a parameter.
const UnknownParam = "N/A"

// InvalidParam describes one rejected value.
type InvalidParam struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Problem is the JSON problem details body of a Failure.
type Problem struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Errors []InvalidParam `json:"errors"`
}

// Failure is returned when request validation fails.
type Failure struct {
	Status int
	Errors []InvalidParam
}

// Error implements the error interface.
func (f *Failure) Error() string {
	reasons := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		reasons[i] = e.Name + ": " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(reasons, "; "))
}

// Problem returns the problem details of f.
func (f *Failure) Problem() Problem {
	status := f.Status
	if status == 0 {
		status = http.StatusBadRequest
	}
	errs := f.Errors
	if errs == nil {
		errs = []InvalidParam{}
	}
	return Problem{Type: ProblemType, Title: ProblemTitle, Status: status, Errors: errs}
}

// ProblemJSON renders f as an application/problem+json body.
func (f *Failure) ProblemJSON() []byte {
	data, err := json.Marshal(f.Problem())
	if err != nil {
		// Problem holds only strings and ints.
		return []byte(`{"type":"` + ProblemType + `"}`)
	}
	return data
}

// failures collects InvalidParams.
type failures []InvalidParam

func (fs *failures) add(name, format string, args ...any) {
	if name == "" {
		name = UnknownParam
	}
	*fs = append(*fs, InvalidParam{Name: name, Reason: fmt.Sprintf(format, args...)})
}

func (fs failures) err() error {
	if len(fs) == 0 {
		return nil
	}
	return &Failure{Status: http.StatusBadRequest, Errors: fs}
}
