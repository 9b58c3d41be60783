package crm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNoStore indicates the document store handle was never provided.
	ErrNoStore = errors.New("document store is not initialized")
	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("validation error")
	// ErrEditorOpen indicates an inline editor is already open.
	ErrEditorOpen = errors.New("an inline editor is already open")
	// ErrNoActiveRecord indicates a modal or form was submitted with nothing selected.
	ErrNoActiveRecord = errors.New("no active record")
)

// FieldError describes a problem with a single field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries one or more field problems.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return fmt.Sprintf("validation: %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
