// Package domainerrors defines the error taxonomy shared by every layer.
//
// Services return *Error values carrying a Code; transports translate the
// Code into a status and a client-safe message. The wrapped cause is kept
// for logs and the audit sink, never for clients.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure independent of transport.
type Code string

const (
	// CodeValidation covers malformed identifiers and missing required fields.
	CodeValidation Code = "validation_error"
	// CodeBadRequest covers requests that cannot be decoded at all.
	CodeBadRequest Code = "bad_request"
	// CodeConflict is the duplicate-object condition (create on an existing name).
	CodeConflict Code = "duplicate"
	// CodeNotFound is returned when a referenced database is absent.
	CodeNotFound Code = "not_found"
	// CodeReference is a foreign-key or other reference violation.
	CodeReference Code = "reference_error"
	// CodeConnectivity means the store or a child process could not be reached.
	CodeConnectivity Code = "connectivity_error"
	// CodeConfig means credentials or settings could not be resolved.
	CodeConfig Code = "config_error"
	// CodeProcess is a migration pipeline failure.
	CodeProcess Code = "process_error"
	// CodeTimeout is a deadline expiry.
	CodeTimeout Code = "timeout"
	// CodeCanceled is an explicit cancellation by the caller.
	CodeCanceled Code = "canceled"
	// CodeUnauthorized is a missing or wrong API key.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal is anything unclassified.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a stable code and a client-safe message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost *Error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost *Error in err's chain carries code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Message returns the client-safe message of the outermost *Error.
func Message(err error) string {
	if de, ok := As(err); ok {
		return de.Message
	}
	return "internal server error"
}
