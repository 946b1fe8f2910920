package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeIO         ErrorType = "IO"
	ErrorTypeValidation ErrorType = "VALIDATION"
)

// Error is the failure type returned by every diffwrite operation. Err holds
// the underlying operating-system error for IO failures.
type Error struct {
	Type ErrorType `json:"type"`
	Op   string    `json:"op"`
	Path string    `json:"path,omitempty"`
	Err  error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IO wraps an operating-system failure observed while performing op on path.
func IO(op, path string, err error) *Error {
	return &Error{
		Type: ErrorTypeIO,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

func Validation(op, path, message string) *Error {
	return &Error{
		Type: ErrorTypeValidation,
		Op:   op,
		Path: path,
		Err:  stderrors.New(message),
	}
}

// IsIO reports whether err carries an IO failure anywhere in its chain.
func IsIO(err error) bool {
	return hasType(err, ErrorTypeIO)
}

func IsValidation(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

func hasType(err error, t ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == t
}

// Is forwards to the standard library so callers importing this package
// need no second errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }
