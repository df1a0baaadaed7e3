package identity

import (
	"context"
	"time"
)

// Identity is a registered principal.
type Identity struct {
	ID          string
	Email       string
	DisplayName string

	// CredentialHash is the encoded password hash. Never log or serialize it.
	CredentialHash string

	CreatedAt time.Time
}

// Redacted returns a copy with CredentialHash cleared.
func (i Identity) Redacted() Identity {
	i.CredentialHash = ""
	return i
}

// Store is the identity persistence boundary.
type Store interface {
	// GetByEmail returns the identity with exactly this email.
	// Missing rows yield a NotFoundError.
	GetByEmail(ctx context.Context, email string) (Identity, error)

	// Begin opens a unit of work for registration.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a registration unit of work.
//
// Exactly one of Commit or Rollback ends it; further calls return ErrTxDone
// (Rollback after Commit is a no-op).
type Tx interface {
	EmailExists(ctx context.Context, email string) (bool, error)

	// Insert persists a new identity. A duplicate email yields ConflictError{Field: "email"}.
	Insert(ctx context.Context, in Identity) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
