package domain

import (
	"strings"
)

// BaseField scopes a validation message to the whole entity rather than one field.
// Cross-entity failures such as bucket overlap use it.
const BaseField = "base"

// FieldError is a single validation failure.
type FieldError struct {
	// Field is the snake_case attribute name, or BaseField.
	Field string `json:"field"`

	// Message is the failure text without the field name ("can't be blank").
	Message string `json:"message"`
}

// FullMessage renders the error with its humanized field name prepended.
// Base-scoped errors are returned as-is.
func (f FieldError) FullMessage() string {
	if f.Field == BaseField || f.Field == "" {
		return f.Message
	}
	return humanize(f.Field) + " " + f.Message
}

// ValidationError collects every failed rule for one entity.
// Validators never stop at the first failure.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed: " + strings.Join(v.FullMessages(), ", ")
}

// Add appends a failure for the given field.
func (v *ValidationError) Add(field, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// Merge appends all failures of other.
func (v *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
}

// HasErrors reports whether any rule failed.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

// On returns the messages recorded for one field.
func (v *ValidationError) On(field string) []string {
	var out []string
	for _, e := range v.Errors {
		if e.Field == field {
			out = append(out, e.Message)
		}
	}
	return out
}

// FullMessages renders every failure for display.
func (v *ValidationError) FullMessages() []string {
	out := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		out = append(out, e.FullMessage())
	}
	return out
}

// OrNil returns v as an error when it holds failures, nil otherwise.
// Avoids the typed-nil interface trap at call sites.
func (v *ValidationError) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// NewValidationError creates a ValidationError with a single failure.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
