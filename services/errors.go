package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the HTTP layer can pick a status code.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindValidation
	KindConflict
	KindUnauthenticated
	KindForbidden
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "unexpected"
	}
}

// Error is a failure whose Message is safe to show to the client.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func validationError(msg string) error { return newError(KindValidation, msg) }
func conflictError(msg string) error   { return newError(KindConflict, msg) }
func forbiddenError(msg string) error  { return newError(KindForbidden, msg) }
func notFoundError(msg string) error   { return newError(KindNotFound, msg) }

// ErrInvalidCredentials is returned by Authenticate for an unknown user or a wrong password.
var ErrInvalidCredentials = &Error{Kind: KindValidation, Message: "Invalid username or password"}

// KindOf returns the kind of err, KindUnexpected for foreign errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

const (
	msgUserNotFound         = "User not found"
	msgPostNotFound         = "Post not found"
	msgNotificationNotFound = "Notification not found"
	msgPostNeedsText        = "Post must have text"
)
