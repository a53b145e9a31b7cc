package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch without parsing messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindInvalidCredentials
	KindForbidden
	KindNotPaired
	KindNotFound
	KindConflict
	KindValidation
	KindTimeout
	KindContention
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindForbidden:
		return "forbidden"
	case KindNotPaired:
		return "not_paired"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindTimeout:
		return "timeout"
	case KindContention:
		return "contention"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by guards, services and the data layer.
// Message is safe to show to a user; Err holds the internal cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for every NotFound regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "not logged in"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "credentials were incorrect"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotPaired          = &Error{Kind: KindNotPaired, Message: "no counterpart assigned"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrTimeout            = &Error{Kind: KindTimeout, Message: "storage operation timed out"}
	ErrContention         = &Error{Kind: KindContention, Message: "storage contention"}
	ErrStorage            = &Error{Kind: KindStorage, Message: "storage unavailable"}
)

// E builds an error of the given kind with a user-facing message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind that keeps cause for logging.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the message that may be shown to the caller.
// Storage-level kinds never expose their cause.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ErrStorage.Message
	}
	switch e.Kind {
	case KindTimeout:
		return ErrTimeout.Message
	case KindContention, KindStorage, KindUnknown:
		return ErrStorage.Message
	}
	return e.Message
}
