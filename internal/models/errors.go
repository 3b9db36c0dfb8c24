package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a post or comment is absent or soft-deleted
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the moderation gate denies an operation
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a concurrent write won and retries ran out
	ErrConflict = errors.New("concurrent update conflict")
	// ErrInvariant is returned when persisted state breaks a model invariant
	ErrInvariant = errors.New("internal invariant violated")
	// ErrUnauthenticated is returned when a mutating call carries no actor
	ErrUnauthenticated = errors.New("authentication required")
)

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level input errors
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// NewValidationError builds an error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add records a rejected field
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when at least one field was rejected
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PostNotFound wraps ErrNotFound for a post id
func PostNotFound(id string) error {
	return fmt.Errorf("post %s: %w", id, ErrNotFound)
}

// CommentNotFound wraps ErrNotFound for a comment id
func CommentNotFound(id string) error {
	return fmt.Errorf("comment %s: %w", id, ErrNotFound)
}
