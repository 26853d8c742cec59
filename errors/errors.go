package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrAuthentication  = fmt.Errorf("authentication failed")
	ErrTokenExpired    = fmt.Errorf("%w: token expired", ErrAuthentication)
	ErrUnknownIdentity = fmt.Errorf("%w: unknown identity", ErrAuthentication)

	ErrValidation       = fmt.Errorf("validation failed")
	ErrSelfConversation = fmt.Errorf("%w: a conversation needs two distinct users", ErrValidation)
	ErrMissingTarget    = fmt.Errorf("%w: target user is missing", ErrValidation)
	ErrEmptyContent     = fmt.Errorf("%w: message content is empty", ErrValidation)
	ErrContentTooLong   = fmt.Errorf("%w: message content is too long", ErrValidation)
	ErrInvalidFile      = fmt.Errorf("%w: file descriptor is invalid", ErrValidation)

	ErrNotFound      = fmt.Errorf("not found")
	ErrForbidden     = fmt.Errorf("forbidden")
	ErrAlreadyExists = fmt.Errorf("already exists")
	ErrRepository    = fmt.Errorf("repository failure")

	ErrSessionClosed   = fmt.Errorf("session closed")
	ErrDeliveryTimeout = fmt.Errorf("delivery timeout")
	ErrUnknownEvent    = fmt.Errorf("unknown event")
	ErrShuttingDown    = fmt.Errorf("server shutting down")
)

// Kind is the client facing category of an error.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindRepository     Kind = "repository"
	KindInternal       Kind = "internal"
)

// KindOf maps any error onto the taxonomy exposed to clients.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnknownEvent):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrRepository):
		return KindRepository
	default:
		return KindInternal
	}
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
