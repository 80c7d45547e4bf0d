// Package goerror carries the caller-facing side of a failure: a message, a
// type, and a code that maps onto an HTTP status. The wrapped error stays
// reachable through errors.Is and errors.As for logging.
package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

// Type classifies errors into high-level buckets.
type Type int

const (
	// TypeServer is an infrastructure or programming failure.
	TypeServer Type = iota
	// TypeBusiness is a refused operation, such as a rejected challenge response.
	TypeBusiness
	// TypeValidation is malformed or invalid input.
	TypeValidation
)

var typeNames = map[Type]string{
	TypeServer:     "ERROR_TYPE_SERVER",
	TypeBusiness:   "ERROR_TYPE_BUSINESS",
	TypeValidation: "ERROR_TYPE_VALIDATION",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "ERROR_TYPE_UNKNOWN"
}

// Code is a stable identifier mapped to an HTTP status.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeUnauthorized
	CodeForbidden
	// CodeUnavailable is a dependency outage the caller may retry.
	CodeUnavailable
)

var codes = map[Code]struct {
	name   string
	status int
}{
	CodeInternal:      {"INTERNAL", http.StatusInternalServerError},
	CodeInvalidFormat: {"INVALID_FORMAT", http.StatusBadRequest},
	CodeInvalidInput:  {"INVALID_INPUT", http.StatusUnprocessableEntity},
	CodeUnauthorized:  {"UNAUTHORIZED", http.StatusUnauthorized},
	CodeForbidden:     {"FORBIDDEN", http.StatusForbidden},
	CodeUnavailable:   {"UNAVAILABLE", http.StatusServiceUnavailable},
}

func (c Code) String() string {
	if v, ok := codes[c]; ok {
		return v.name
	}
	return codes[CodeInternal].name
}

// Error is a structured error used across the application.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

// Error returns the wrapped error's text when present, the message otherwise.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.msg
}

// String is the verbose form used in debug logs.
func (e *Error) String() string {
	return fmt.Sprintf("type=%s code=%s msg=%q err=%v", e.errType, e.code, e.msg, e.err)
}

// Msg is the caller-facing message.
func (e *Error) Msg() string { return e.msg }

func (e *Error) Type() Type { return e.errType }

func (e *Error) Code() Code { return e.code }

// Fields returns per-field validation messages, if any.
func (e *Error) Fields() map[string]string { return e.fields }

func (e *Error) Unwrap() error { return e.err }

// StatusCode maps the code to an HTTP status; unknown codes are 500.
func (e *Error) StatusCode() int {
	if v, ok := codes[e.code]; ok {
		return v.status
	}
	return http.StatusInternalServerError
}

func newError(err error, msg string, et Type, code Code) *Error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer hides err behind a generic 500.
func NewServer(err error) error {
	return newError(err, "Internal server error", TypeServer, CodeInternal)
}

// NewUnavailable hides err behind a retryable 503.
func NewUnavailable(err error) error {
	return newError(err, "Service temporarily unavailable, please retry", TypeServer, CodeUnavailable)
}

// IsRetryable reports whether err carries CodeUnavailable.
func IsRetryable(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.code == CodeUnavailable
}

// NewBusiness is a refusal with a fixed caller-facing message.
func NewBusiness(msg string, code Code) error {
	return newError(nil, msg, TypeBusiness, code)
}

// NewInvalidInput wraps a validator error, or builds one from field/message
// pairs when err is nil. An odd number of pairs is a malformed request.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return newError(err, "Validation error", TypeValidation, CodeInvalidInput)
	}
	if len(kv)%2 != 0 {
		return NewInvalidFormat()
	}

	e := newError(nil, "Validation error", TypeValidation, CodeInvalidInput)
	e.fields = make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		e.fields[kv[i]] = kv[i+1]
	}
	return e
}

// NewInvalidFormat is a 400 for a body that cannot be decoded.
func NewInvalidFormat(msgs ...string) error {
	msg := "Invalid request body"
	if len(msgs) > 0 {
		msg = msgs[0]
	}
	return newError(nil, msg, TypeValidation, CodeInvalidFormat)
}
