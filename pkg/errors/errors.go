package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeForbidden   ErrorType = "forbidden"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// ResetAt is when the API quota window reopens. Zero when unknown.
	ResetAt time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error
func New(errorType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// FromStatusCode maps an HTTP status code to a typed error.
// It returns nil for 2xx and 3xx codes.
func FromStatusCode(statusCode int, message string) *Error {
	if statusCode < 400 {
		return nil
	}

	var t ErrorType
	switch {
	case statusCode == http.StatusUnauthorized:
		t = ErrorTypeAuth
	case statusCode == http.StatusForbidden:
		t = ErrorTypeForbidden
	case statusCode == http.StatusNotFound:
		t = ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case statusCode >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeUnknown
	}

	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &Error{Type: t, Message: message, Code: statusCode}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeForbidden, ErrorTypeNotFound, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is not
// an *Error.
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsRateLimit reports whether err is a rate limit error
func IsRateLimit(err error) bool {
	return TypeOf(err) == ErrorTypeRateLimit
}

// IsPermanent reports whether err describes a resource that will never be
// readable with the current credentials, such as a protected or deleted
// account.
func IsPermanent(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeAuth, ErrorTypeForbidden, ErrorTypeNotFound:
		return true
	default:
		return false
	}
}

// ResetTime returns the quota reset time carried by a rate limit error
func ResetTime(err error) (time.Time, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && !apiErr.ResetAt.IsZero() {
		return apiErr.ResetAt, true
	}
	return time.Time{}, false
}
