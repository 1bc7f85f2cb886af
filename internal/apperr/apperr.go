// Package apperr carries the business-error taxonomy. Service methods
// return an *Error for every expected rule failure; anything else that
// reaches the boundary is treated as an unexpected store fault.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	Unauthorized       Kind = "UNAUTHORIZED"
	Validation         Kind = "VALIDATION"
	Conflict           Kind = "CONFLICT"
	NotFound           Kind = "NOT_FOUND"
	PreconditionFailed Kind = "PRECONDITION_FAILED"
	Unexpected         Kind = "UNEXPECTED"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error. Non-apperr errors are Unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
