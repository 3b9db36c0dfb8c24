package api

import (
	"errors"
	"fmt"

	"github.com/learnhub/community/internal/models"
)

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
)

// Application error codes, in the server-defined range
const (
	ErrUnauthenticated = -32001
	ErrForbidden       = -32003
	ErrNotFound        = -32004
	ErrConflict        = -32009
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// toRPCError maps a service error onto a JSON-RPC error object. Internal
// details are not echoed to the caller.
func toRPCError(err error) *JSONRPCError {
	var apiErr *Error
	var ve *models.ValidationError
	switch {
	case errors.As(err, &apiErr):
		return &JSONRPCError{Code: apiErr.Code, Message: apiErr.Message}
	case errors.As(err, &ve):
		return &JSONRPCError{Code: ErrInvalidParams, Message: "Invalid params", Data: ve.Fields}
	case errors.Is(err, models.ErrNotFound):
		return &JSONRPCError{Code: ErrNotFound, Message: "Not found", Data: err.Error()}
	case errors.Is(err, models.ErrForbidden):
		return &JSONRPCError{Code: ErrForbidden, Message: "Forbidden", Data: err.Error()}
	case errors.Is(err, models.ErrUnauthenticated):
		return &JSONRPCError{Code: ErrUnauthenticated, Message: "Authentication required"}
	case errors.Is(err, models.ErrConflict):
		return &JSONRPCError{Code: ErrConflict, Message: "Conflict", Data: "concurrent update, please retry"}
	default:
		return &JSONRPCError{Code: ErrInternalError, Message: "Internal error"}
	}
}
