// Package apperr defines the error kinds shared by the domain packages and the
// HTTP boundary that translates them into responses.
package apperr

import (
	"errors"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindConflict
	KindInsufficientStock
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	default:
		return "internal"
	}
}

// Error is a sentinel carrying a kind and a message that is safe to show to users.
type Error struct {
	kind Kind
	msg  string
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

type kinded interface {
	Kind() Kind
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// Message returns the user-facing text for err. Internal errors never expose
// their detail.
func Message(err error) string {
	var k kinded
	if err == nil || !errors.As(err, &k) || k.Kind() == KindInternal {
		return "Something went wrong. Please try again later."
	}
	return k.(error).Error()
}

// ValidationError collects input problems found in one pass so they can be
// reported together.
type ValidationError struct {
	Problems []string
}

func Invalid(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string { return strings.Join(e.Problems, " ") }

func (e *ValidationError) Kind() Kind { return KindValidation }
