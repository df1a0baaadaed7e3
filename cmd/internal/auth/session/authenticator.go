package session

import (
	"context"
	"errors"
	"log/slog"

	"warden/cmd/identity"
	"warden/cmd/internal/auth"
	"warden/cmd/security/password"
)

// IdentityLookup is satisfied by identity.Store.
type IdentityLookup interface {
	GetByEmail(ctx context.Context, email string) (identity.Identity, error)
}

// Verifier is satisfied by password.Config.
type Verifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// Hasher produces the dummy hash used for unknown emails.
type Hasher interface {
	Hash(password string) (string, error)
}

// Issuer is satisfied by token.Issuer.
type Issuer interface {
	Issue() (string, error)
}

// Authenticator checks credentials and issues session tokens.
type Authenticator struct {
	identities IdentityLookup
	verifier   Verifier
	issuer     Issuer
	log        *slog.Logger

	// dummyHash is verified against when the email is unknown, so both
	// branches spend comparable time.
	dummyHash string
}

// NewAuthenticator wires an Authenticator. hasher produces the dummy hash
// once at construction; pass the same password.Config used for Verify.
func NewAuthenticator(identities IdentityLookup, verifier Verifier, hasher Hasher, issuer Issuer, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}
	a := &Authenticator{
		identities: identities,
		verifier:   verifier,
		issuer:     issuer,
		log:        log,
	}
	if hasher != nil {
		if h, err := hasher.Hash("dummy-password-for-timing-only"); err == nil {
			a.dummyHash = h
		} else {
			log.Warn("auth.login.dummy_hash_unavailable", "err", err)
		}
	}
	return a
}

// Authenticate returns a fresh session token when email and plaintext match.
//
// Unknown emails and wrong passwords both yield auth.ErrInvalidCredentials.
// A stored hash that cannot be parsed yields auth.ErrInternal and is logged.
func (a *Authenticator) Authenticate(ctx context.Context, email, plaintext string) (string, error) {
	const op = "session.Authenticate"

	id, err := a.identities.GetByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			if a.dummyHash != "" {
				_, _ = a.verifier.Verify(plaintext, a.dummyHash)
			}
			return "", auth.E(op, auth.ErrInvalidCredentials, nil)
		}
		a.log.ErrorContext(ctx, "auth.login.fail", "stage", "lookup", "err", err)
		return "", auth.E(op, auth.ErrStorage, err)
	}

	ok, err := a.verifier.Verify(plaintext, id.CredentialHash)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			a.log.ErrorContext(ctx, "auth.login.fail", "stage", "verify", "identity_id", id.ID, "err", err)
		} else {
			a.log.ErrorContext(ctx, "auth.login.fail", "stage", "verify", "err", err)
		}
		return "", auth.E(op, auth.ErrInternal, err)
	}
	if !ok {
		return "", auth.E(op, auth.ErrInvalidCredentials, nil)
	}

	tok, err := a.issuer.Issue()
	if err != nil {
		a.log.ErrorContext(ctx, "auth.login.fail", "stage", "issue", "err", err)
		return "", auth.E(op, auth.ErrInternal, err)
	}

	a.log.InfoContext(ctx, "auth.login.ok", "identity_id", id.ID)
	return tok, nil
}
