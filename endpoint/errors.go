package endpoint

import "fmt"

// ValidationError reports a specifier or argument that is well-formed as
// input text but violates a domain constraint. It maps to exit code 1 at
// the CLI boundary.
type ValidationError struct {
	// Field names the input being validated ("source", "destination",
	// "port", "streams", "identity", ...).
	Field string

	// Value is the offending raw value, when quoting it helps.
	Value string

	// Reason is a short description of the violated constraint.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given input field.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}
