// errors.go - Typed error taxonomy for note, nullifier and spent-set operations.
//
// Every failure in this package is an *Error carrying a stable machine code.
// Errors are local to the operation that produced them: no state is mutated
// on failure and nothing is retried.

package note

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class for programmatic handling.
type ErrorCode string

const (
	// Secret validation failures.
	CodeSecretEmpty    ErrorCode = "SECRET_EMPTY"
	CodeSecretTooShort ErrorCode = "SECRET_TOO_SHORT"
	CodeSecretTooLong  ErrorCode = "SECRET_TOO_LONG"

	// Value validation failures.
	CodeValueZero ErrorCode = "VALUE_ZERO"

	// Nullifier failures.
	CodeNullifierEmpty       ErrorCode = "NULLIFIER_EMPTY"
	CodeNullifierWrongLength ErrorCode = "NULLIFIER_WRONG_LENGTH"
	CodeAlreadySpent         ErrorCode = "NULLIFIER_ALREADY_SPENT"

	// Malformed or incompatible export payloads.
	CodeSerialization ErrorCode = "SERIALIZATION_ERROR"

	// Registry-level misuse: unknown or duplicate identifier, nullifier
	// requested before generation, commitment mismatch.
	CodeOperation ErrorCode = "OPERATION_ERROR"
)

// Error is the error type returned by every operation in this package.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is lets errors.Is match two *Error values by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsAlreadySpent reports whether err is a spend conflict.
func IsAlreadySpent(err error) bool {
	return CodeOf(err) == CodeAlreadySpent
}

// IsValidation reports whether err is an input validation failure
// (secret bounds, zero value, or malformed nullifier bytes).
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case CodeSecretEmpty, CodeSecretTooShort, CodeSecretTooLong,
		CodeValueZero, CodeNullifierEmpty, CodeNullifierWrongLength:
		return true
	}
	return false
}
