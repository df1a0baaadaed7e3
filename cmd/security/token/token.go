package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const (
	// ByteLength is the number of random bytes behind each token.
	ByteLength = 16

	bearerPrefix = "Bearer "
)

// Issuer mints session tokens.
// The zero value reads from crypto/rand.
type Issuer struct {
	// Rand overrides the entropy source in tests.
	Rand io.Reader
}

// Issue returns a fresh 32-character lowercase hex token.
func (i Issuer) Issue() (string, error) {
	src := i.Rand
	if src == nil {
		src = rand.Reader
	}

	b := make([]byte, ByteLength)
	if _, err := io.ReadFull(src, b); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ParseBearer extracts the token from an Authorization header value.
//
// The header must begin with exactly "Bearer " (case-sensitive, one space).
// The token is everything after the prefix up to the next space.
func ParseBearer(header string) (string, error) {
	rest, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", ErrMalformedHeader
	}
	tok, _, _ := strings.Cut(rest, " ")
	if tok == "" {
		return "", ErrMalformedHeader
	}
	return tok, nil
}
