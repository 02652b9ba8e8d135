package models

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is one failed check on a dotted field path, e.g. "runs[3].id"
// or "loader.sparse_stride".
type FieldError struct {
	Field   string
	Message string
	Cause   error
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e FieldError) Unwrap() error {
	return e.Cause
}

// ValidationErrors collects every failed check instead of stopping at the
// first. Run entries and config sections report through it.
type ValidationErrors struct {
	Errors []FieldError
}

// Add records err under field. A nested *ValidationErrors is flattened with
// field as the path prefix.
func (v *ValidationErrors) Add(field string, err error) {
	if err == nil {
		return
	}
	var nested *ValidationErrors
	if errors.As(err, &nested) {
		for _, sub := range nested.Errors {
			sub.Field = joinField(field, sub.Field)
			v.Errors = append(v.Errors, sub)
		}
		return
	}
	v.Errors = append(v.Errors, FieldError{Field: field, Message: err.Error(), Cause: err})
}

// Addf records a formatted failure with no underlying cause.
func (v *ValidationErrors) Addf(field, format string, args ...any) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Len is the number of recorded failures.
func (v *ValidationErrors) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Errors)
}

// Err returns v as an error, or nil when nothing failed.
func (v *ValidationErrors) Err() error {
	if v.Len() == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, v.Len())
	for _, err := range v.Errors {
		parts = append(parts, err.Error())
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes each failure so errors.Is reaches sentinel causes.
func (v *ValidationErrors) Unwrap() []error {
	out := make([]error, 0, v.Len())
	for _, err := range v.Errors {
		out = append(out, err)
	}
	return out
}

func joinField(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}
