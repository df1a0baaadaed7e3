// Package revocation records invalidated session tokens.
//
// An entry's presence means the token must be rejected; ExpiresAt only tells
// maintenance jobs when the entry may be purged. Backends enforce uniqueness
// atomically so that exactly one of two concurrent Revoke calls succeeds.
package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyRevoked is returned by Revoke when the token already has an entry.
var ErrAlreadyRevoked = errors.New("revocation: token already revoked")

// Store is the revocation persistence boundary.
type Store interface {
	IsRevoked(ctx context.Context, token string) (bool, error)

	// Revoke inserts an entry. Duplicates yield ErrAlreadyRevoked.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
}

// Purger is implemented by backends without native expiry.
type Purger interface {
	// Purge deletes entries whose expiry is strictly before the cutoff and
	// reports how many were removed.
	Purge(ctx context.Context, before time.Time) (int64, error)
}
