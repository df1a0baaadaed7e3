package password

import (
	"errors"
	"fmt"
)

// Public, stable errors for callers.
var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrMissingUpper     = errors.New("password missing uppercase letter")
	ErrMissingLower     = errors.New("password missing lowercase letter")
	ErrMissingDigit     = errors.New("password missing digit")
	ErrInvalidHash      = errors.New("invalid password hash")
)

// PolicyViolation reports the first policy rule a candidate password failed.
// Reason is safe to return to clients.
type PolicyViolation struct {
	Rule   error
	Reason string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("password policy: %s", e.Reason)
}

func (e *PolicyViolation) Unwrap() error { return e.Rule }

// IsPolicyViolation reports whether err is a *PolicyViolation and returns it.
func IsPolicyViolation(err error) (*PolicyViolation, bool) {
	var pv *PolicyViolation
	if errors.As(err, &pv) {
		return pv, true
	}
	return nil, false
}
