package model

import (
	"time"
)

// Record is a captured request/response pair.
type Record struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Method    string         `json:"method"`
	Path      string         `json:"path"`
	Request   RecordRequest  `json:"request"`
	Response  RecordResponse `json:"response"`
}

// RecordRequest is the request side of a Record.
type RecordRequest struct {
	ContentType string              `json:"contentType,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`
	Cookies     map[string]string   `json:"cookies,omitempty"`
	Body        []byte              `json:"body,omitempty"`
}

// RecordResponse is the response side of a Record.
type RecordResponse struct {
	Status      int                 `json:"status"`
	ContentType string              `json:"contentType,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`
	Body        []byte              `json:"body,omitempty"`
}

// Records holds the records of one API in arrival order.
type Records struct {
	Records []Record `json:"records"`
}

// Add appends r.
func (r *Records) Add(rec Record) *Records {
	r.Records = append(r.Records, rec)
	return r
}

// ByPath returns the records of the exact request path.
func (r *Records) ByPath(path string) []Record {
	var result []Record
	if r == nil {
		return result
	}
	for _, rec := range r.Records {
		if rec.Path == path {
			result = append(result, rec)
		}
	}
	return result
}
