// Package account registers new identities.
package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"warden/cmd/identity"
	"warden/cmd/internal/auth"
	"warden/cmd/security/password"
)

// PasswordPolicy is satisfied by password.Policy.
type PasswordPolicy interface {
	Validate(password string) error
}

// Hasher is satisfied by password.Config.
type Hasher interface {
	Hash(password string) (string, error)
}

// Notifier schedules the welcome notification. It must not block or fail.
type Notifier interface {
	NotifyRegistered(ctx context.Context, recipient, name string)
}

// NoopNotifier is used when no email service is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyRegistered(context.Context, string, string) {}

// RegisterInput is a registration request.
type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
}

// Registrar creates identities.
type Registrar struct {
	store    identity.Store
	policy   PasswordPolicy
	hasher   Hasher
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithNotifier sets the post-commit notifier.
func WithNotifier(n Notifier) Option {
	return func(r *Registrar) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registrar) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registrar) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistrar wires a Registrar.
func NewRegistrar(store identity.Store, policy PasswordPolicy, hasher Hasher, opts ...Option) *Registrar {
	r := &Registrar{
		store:    store,
		policy:   policy,
		hasher:   hasher,
		notifier: NoopNotifier{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register creates an identity for in.
//
// The existence check, policy check, hashing and insert run inside one store
// transaction; any failure rolls it back. The welcome notification is
// scheduled only after commit and never affects the result. The returned
// Identity has its CredentialHash cleared.
func (r *Registrar) Register(ctx context.Context, in RegisterInput) (identity.Identity, error) {
	const op = "account.Register"

	if in.Email == "" {
		return identity.Identity{}, &auth.Error{Op: op, Kind: auth.ErrValidation, Reason: "email is required"}
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return identity.Identity{}, &auth.Error{Op: op, Kind: auth.ErrValidation, Reason: "full_name is required"}
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		r.log.ErrorContext(ctx, "auth.register.fail", "stage", "begin", "err", err)
		return identity.Identity{}, auth.E(op, auth.ErrStorage, err)
	}

	created, err := r.registerTx(ctx, tx, in)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.log.WarnContext(ctx, "auth.register.rollback_fail", "err", rbErr)
		}
		return identity.Identity{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		if identity.IsConflict(err) {
			return identity.Identity{}, auth.E(op, auth.ErrEmailTaken, err)
		}
		r.log.ErrorContext(ctx, "auth.register.fail", "stage", "commit", "err", err)
		return identity.Identity{}, auth.E(op, auth.ErrStorage, err)
	}

	r.log.InfoContext(ctx, "auth.register.ok", "identity_id", created.ID)
	r.notifier.NotifyRegistered(ctx, created.Email, created.DisplayName)

	return created.Redacted(), nil
}

func (r *Registrar) registerTx(ctx context.Context, tx identity.Tx, in RegisterInput) (identity.Identity, error) {
	const op = "account.Register"

	exists, err := tx.EmailExists(ctx, in.Email)
	if err != nil {
		r.log.ErrorContext(ctx, "auth.register.fail", "stage", "lookup", "err", err)
		return identity.Identity{}, auth.E(op, auth.ErrStorage, err)
	}
	if exists {
		return identity.Identity{}, auth.E(op, auth.ErrEmailTaken, nil)
	}

	if err := r.policy.Validate(in.Password); err != nil {
		reason := err.Error()
		if pv, ok := password.IsPolicyViolation(err); ok {
			reason = pv.Reason
		}
		return identity.Identity{}, &auth.Error{Op: op, Kind: auth.ErrWeakPassword, Reason: reason, Err: err}
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		r.log.ErrorContext(ctx, "auth.register.fail", "stage", "hash", "err", err)
		return identity.Identity{}, auth.E(op, auth.ErrInternal, err)
	}

	now := r.now().UTC()
	id, err := identity.NewULID(now)
	if err != nil {
		r.log.ErrorContext(ctx, "auth.register.fail", "stage", "id", "err", err)
		return identity.Identity{}, auth.E(op, auth.ErrInternal, err)
	}

	created := identity.Identity{
		ID:             id,
		Email:          in.Email,
		DisplayName:    in.DisplayName,
		CredentialHash: hash,
		CreatedAt:      now,
	}

	if err := tx.Insert(ctx, created); err != nil {
		var ce identity.ConflictError
		if errors.As(err, &ce) && ce.Field == "email" {
			return identity.Identity{}, auth.E(op, auth.ErrEmailTaken, err)
		}
		r.log.ErrorContext(ctx, "auth.register.fail", "stage", "insert", "err", err)
		return identity.Identity{}, auth.E(op, auth.ErrStorage, err)
	}

	return created, nil
}
