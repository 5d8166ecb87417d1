// Package domainerrors provides coded errors shared across service layers.
// Codes classify failures for transport mapping and metrics without leaking
// backend detail to callers.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. The string value doubles as the wire-level
// error identifier in HTTP responses.
type Code string

const (
	CodeInternal           Code = "internal_error"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeRateLimited        Code = "rate_limited"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
)

// DomainError carries a classification code alongside a human-readable
// message. The wrapped cause, if any, stays reachable through errors.Is and
// errors.As but is never rendered to clients.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e DomainError) Unwrap() error { return e.Err }

// New returns a coded error with no underlying cause.
func New(code Code, message string) error {
	return DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause remains
// matchable via errors.Is/errors.As.
func Wrap(err error, code Code, message string) error {
	return DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	var de DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a shorter alias for HasCode.
func Is(err error, code Code) bool { return HasCode(err, code) }

// ToHTTPStatus maps a code to the HTTP status used by transport layers.
// Unknown codes map to 500 so new codes fail safe.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeInternal, CodeInvariantViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
