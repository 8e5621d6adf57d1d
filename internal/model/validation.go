package model

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// MsgRequired is the message attached to missing required fields.
const MsgRequired = "This field is required."

// ValidationError collects field-level messages for a rejected record.
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

// Add attaches msg to field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// OrNil returns e when it holds at least one message, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func checkLen(verr *ValidationError, field, value string, limit int) {
	if n := utf8.RuneCountInString(value); n > limit {
		verr.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", limit))
	}
}
