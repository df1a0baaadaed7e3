package auth

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	ErrEmailTaken         = errors.New("email_taken")
	ErrWeakPassword       = errors.New("weak_password")
	ErrValidation         = errors.New("validation")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrMalformedHeader    = errors.New("malformed_header")
	ErrAlreadyInvalidated = errors.New("already_invalidated")
	ErrStorage            = errors.New("storage")
	ErrInternal           = errors.New("internal")
)

// Category groups kinds by how callers should react.
type Category string

const (
	CategoryValidation       Category = "validation"
	CategoryConflict         Category = "conflict"
	CategoryAuthentication   Category = "authentication"
	CategoryMalformedRequest Category = "malformed_request"
	CategoryStorage          Category = "storage"
	CategoryInternal         Category = "internal"
)

// CategoryOf maps an error to its category. Unknown errors are internal.
func CategoryOf(err error) Category {
	switch {
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrAlreadyInvalidated):
		return CategoryConflict
	case errors.Is(err, ErrInvalidCredentials):
		return CategoryAuthentication
	case errors.Is(err, ErrMalformedHeader):
		return CategoryMalformedRequest
	case errors.Is(err, ErrStorage):
		return CategoryStorage
	default:
		return CategoryInternal
	}
}

// Error is a typed operation failure.
//
// Reason is safe to show to clients (for example a password policy message).
// Err is the underlying cause and is for logs only.
type Error struct {
	Op     string
	Kind   error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both Kind and Err to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// E builds an *Error.
func E(op string, kind error, cause error) *Error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// KindOf returns the sentinel kind carried by err, or ErrInternal.
func KindOf(err error) error {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != nil {
		return ae.Kind
	}
	for _, k := range []error{
		ErrEmailTaken, ErrWeakPassword, ErrValidation, ErrInvalidCredentials,
		ErrMalformedHeader, ErrAlreadyInvalidated, ErrStorage, ErrInternal,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// ReasonOf returns the client-safe reason carried by err, if any.
func ReasonOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
