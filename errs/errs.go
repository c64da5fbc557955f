package errs

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for callers and for the HTTP layer.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeStateConflict     Code = "STATE_CONFLICT"
	CodeCapacity          Code = "CAPACITY_REACHED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeConcurrency       Code = "CONCURRENCY_CONFLICT"
	CodeForbidden         Code = "FORBIDDEN"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInternal          Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidation:        http.StatusBadRequest,
	CodeNotFound:          http.StatusNotFound,
	CodeStateConflict:     http.StatusConflict,
	CodeCapacity:          http.StatusForbidden,
	CodeInsufficientFunds: http.StatusPaymentRequired,
	CodeConcurrency:       http.StatusConflict,
	CodeForbidden:         http.StatusForbidden,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeInternal:          http.StatusInternalServerError,
}

// HTTPStatus maps a code to its response status. Unknown codes are treated
// as internal failures.
func HTTPStatus(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the caller may safely retry the same request.
// Only lost optimistic-concurrency races qualify.
func Retryable(code Code) bool {
	return code == CodeConcurrency
}

// Error is the structured failure returned by every service operation.
type Error struct {
	code    Code
	message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts a typed *Error from an error chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of err, defaulting to CodeInternal for untyped
// errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
