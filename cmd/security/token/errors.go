package token

import "errors"

// Public, stable errors for callers.
var (
	// ErrMalformedHeader means the Authorization header is absent, lacks the
	// "Bearer " prefix, or carries an empty token.
	ErrMalformedHeader = errors.New("missing or malformed authorization header")
)
