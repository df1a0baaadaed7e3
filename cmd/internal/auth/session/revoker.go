package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"warden/cmd/internal/auth"
	"warden/cmd/internal/auth/revocation"
	"warden/cmd/security/token"
)

// RevocationWindow is how long a revocation entry is kept before it may be purged.
const RevocationWindow = time.Hour

// Revoker invalidates bearer tokens.
type Revoker struct {
	store revocation.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewRevoker wires a Revoker. A nil clock uses time.Now.
func NewRevoker(store revocation.Store, log *slog.Logger, now func() time.Time) *Revoker {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Revoker{store: store, log: log, now: now}
}

// Revoke parses the Authorization header value and records its token.
//
// A second revocation of the same token, including the loser of a
// concurrent race, yields auth.ErrAlreadyInvalidated.
func (r *Revoker) Revoke(ctx context.Context, authorizationHeader string) error {
	const op = "session.Revoke"

	tok, err := token.ParseBearer(authorizationHeader)
	if err != nil {
		return auth.E(op, auth.ErrMalformedHeader, err)
	}

	revoked, err := r.store.IsRevoked(ctx, tok)
	if err != nil {
		r.log.ErrorContext(ctx, "auth.logout.fail", "stage", "lookup", "err", err)
		return auth.E(op, auth.ErrStorage, err)
	}
	if revoked {
		return auth.E(op, auth.ErrAlreadyInvalidated, nil)
	}

	if err := r.store.Revoke(ctx, tok, r.now().Add(RevocationWindow)); err != nil {
		if errors.Is(err, revocation.ErrAlreadyRevoked) {
			return auth.E(op, auth.ErrAlreadyInvalidated, err)
		}
		r.log.ErrorContext(ctx, "auth.logout.fail", "stage", "insert", "err", err)
		return auth.E(op, auth.ErrStorage, err)
	}

	r.log.InfoContext(ctx, "auth.logout.ok")
	return nil
}
