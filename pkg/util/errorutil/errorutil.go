package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in the response envelope.
const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeMismatch     = "CODE_MISMATCH"
	CodeTransport    = "TRANSPORT_FAILED"
	CodeStore        = "STORE_FAILED"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Reason     string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func withReason(code, reason, message string, status int) *DomainError {
	return &DomainError{
		Code:       code,
		Reason:     reason,
		Message:    message,
		HTTPStatus: status,
		Details:    map[string]any{"reason": reason},
	}
}

// NewValidationError reports malformed or missing input.
func NewValidationError(reason, message string) error {
	return withReason(CodeValidation, reason, message, http.StatusBadRequest)
}

// NewConflict reports a uniqueness violation.
func NewConflict(reason, message string) error {
	return withReason(CodeConflict, reason, message, http.StatusConflict)
}

// NewUnauthorized reports a missing, invalid or expired credential.
func NewUnauthorized(message string) error {
	return withReason(CodeUnauthorized, "unauthenticated", message, http.StatusUnauthorized)
}

// NewNotFound reports a missing resource.
func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Reason:     "not_found",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewMismatch reports a verification code that does not match the pending one.
func NewMismatch(message string) error {
	return withReason(CodeMismatch, "code_mismatch", message, http.StatusBadRequest)
}

// NewTransportError wraps a mail delivery failure.
func NewTransportError(err error) error {
	return &DomainError{
		Code:       CodeTransport,
		Reason:     "transport_failed",
		Message:    "message delivery failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewStoreError wraps an unexpected data store failure.
func NewStoreError(err error) error {
	return &DomainError{
		Code:       CodeStore,
		Reason:     "store_failed",
		Message:    "data store failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err is a DomainError carrying code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ReasonOf returns the typed reason of a DomainError, or "".
func ReasonOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Reason
	}
	return ""
}
