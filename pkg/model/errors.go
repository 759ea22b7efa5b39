package model

import (
	"sort"
	"strings"
)

// ErrorBody is the error payload the backend returns with non-2xx statuses.
type ErrorBody struct {
	Status  string              `json:"status,omitempty"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// FieldMessages flattens validation errors into "field: message" lines,
// ordered by field name.
func (b *ErrorBody) FieldMessages() []string {
	if b == nil || len(b.Errors) == 0 {
		return nil
	}
	fields := make([]string, 0, len(b.Errors))
	for f := range b.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		out = append(out, f+": "+strings.Join(b.Errors[f], ", "))
	}
	return out
}
