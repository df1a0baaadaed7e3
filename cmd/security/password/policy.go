package password

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Validate checks the password against the policy. It does not mutate input.
//
// Rules are evaluated in a fixed order (length, uppercase, lowercase, digit)
// and only the first failure is reported.
func (p Policy) Validate(password string) error {
	// Count characters (runes), not bytes, to be user-friendly.
	n := utf8.RuneCountInString(password)

	minLen := p.MinLength
	if minLen <= 0 {
		minLen = DefaultMinLength
	}

	if n < minLen {
		return &PolicyViolation{
			Rule:   ErrPasswordTooShort,
			Reason: fmt.Sprintf("Password must be at least %d characters long", minLen),
		}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		return &PolicyViolation{Rule: ErrMissingUpper, Reason: "Password must contain at least one uppercase letter"}
	}
	if !hasLower {
		return &PolicyViolation{Rule: ErrMissingLower, Reason: "Password must contain at least one lowercase letter"}
	}
	if !hasDigit {
		return &PolicyViolation{Rule: ErrMissingDigit, Reason: "Password must contain at least one number"}
	}

	if p.MaxLength > 0 && n > p.MaxLength {
		return &PolicyViolation{
			Rule:   ErrPasswordTooLong,
			Reason: fmt.Sprintf("Password must be at most %d characters long", p.MaxLength),
		}
	}

	return nil
}
