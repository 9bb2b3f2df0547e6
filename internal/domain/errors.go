package domain

import (
	"fmt"
	"strings"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages maps validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"oneof":    "Must be one of the allowed values",
	"dive":     "Contains an invalid element",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeInternal     = "internal_error"
)

// InputError is a missing or malformed field. The message is shown to the user as is.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// NewInputError creates an InputError with a formatted message
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError means no customer, product or order matched
type NotFoundError struct {
	Entity  string
	Terms   []string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found: %s", e.Entity, strings.Join(e.Terms, ", "))
}

// AmbiguousError means several records matched and the user must be more specific
type AmbiguousError struct {
	Entity     string
	Candidates []Candidate
	Message    string
}

func (e *AmbiguousError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%d %s records matched", len(e.Candidates), e.Entity)
}

// StateConflictError is an illegal transition for the current remote state
type StateConflictError struct {
	Order   string
	State   OrderState
	Message string
	// Notice marks a harmless conflict, such as confirming an already confirmed order
	Notice bool
}

func (e *StateConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("order %s is in state %s", e.Order, e.State)
}

// RemoteFailure wraps an error raised by the ERP or the language model
type RemoteFailure struct {
	Op  string
	Err error
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteFailure) Unwrap() error { return e.Err }
