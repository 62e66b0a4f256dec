package services

import (
	"errors"
	"fmt"
)

// Kind classifies procedure failures for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindForbidden
	KindNotFound
	KindRateLimited
	// KindUnavailable is a transport or availability failure of an external service.
	// Unlike KindInternal it is safe for a client to retry.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limit_exceeded"
	case KindUnavailable:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// Error is returned by every PostService procedure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewForbiddenError(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewInternalError(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

func NewUnavailableError(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}
