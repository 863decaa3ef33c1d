package features

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the feature pipeline so the HTTP layer
// can map them to responses without string matching.
type ErrorKind string

const (
	KindMissingField      ErrorKind = "missing_field"
	KindInvalidValue      ErrorKind = "invalid_value"
	KindSchemaUnavailable ErrorKind = "schema_unavailable"
)

// Error is the single error type returned by Encode and Align.
type Error struct {
	Kind  ErrorKind
	Field string // request key, empty for schema errors
	Value any    // offending raw value for KindInvalidValue
	Msg   string
}

func (e *Error) Error() string {
	return e.Msg
}

// MissingFieldError reports a required record key that is absent or null.
func MissingFieldError(field string) *Error {
	return &Error{
		Kind:  KindMissingField,
		Field: field,
		Msg:   fmt.Sprintf("missing required field %q", field),
	}
}

// InvalidValueError reports a numeric value that cannot be coerced to a
// finite number, or a categorical value that is not a scalar.
func InvalidValueError(field string, value any) *Error {
	return &Error{
		Kind:  KindInvalidValue,
		Field: field,
		Value: value,
		Msg:   fmt.Sprintf("field %q: invalid value %v", field, value),
	}
}

// SchemaUnavailableError reports that no training column schema is loaded.
func SchemaUnavailableError(reason string) *Error {
	msg := "training column schema unavailable"
	if reason != "" {
		msg += ": " + reason
	}
	return &Error{Kind: KindSchemaUnavailable, Msg: msg}
}

// KindOf returns the kind of a pipeline error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func IsMissingField(err error) bool      { return KindOf(err) == KindMissingField }
func IsInvalidValue(err error) bool      { return KindOf(err) == KindInvalidValue }
func IsSchemaUnavailable(err error) bool { return KindOf(err) == KindSchemaUnavailable }
