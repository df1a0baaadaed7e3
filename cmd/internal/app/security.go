package app

import (
	"errors"
	"fmt"

	"warden/cmd/identity"
	"warden/cmd/internal/notify"
)

// ValidateSecurityConfig rejects configurations that would start a service
// which silently drops notifications, weakens hashing or points at a missing backend.
func ValidateSecurityConfig(cfg Config) error {
	var errs []error

	if cfg.Notify.Enabled() {
		if err := notify.ValidateEndpoint(cfg.Notify.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("security policy: WARDEN_EMAIL_SERVICE_URL: %w", err))
		}
	}

	if err := cfg.Password.Check(); err != nil {
		errs = append(errs, fmt.Errorf("security policy: %w", err))
	}

	if !identity.PgIdentIsValid(cfg.DBSchema) {
		errs = append(errs, fmt.Errorf("config: WARDEN_DB_SCHEMA %q is not a valid identifier", cfg.DBSchema))
	}

	switch cfg.ResolvedRevocationBackend() {
	case RevocationRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("config: WARDEN_REVOCATION_BACKEND=redis but WARDEN_REDIS_URL is missing"))
		}
	case RevocationPostgres:
		if !cfg.DBEnabled() {
			errs = append(errs, errors.New("config: WARDEN_REVOCATION_BACKEND=postgres but WARDEN_DATABASE_URL is missing"))
		}
	}

	return errors.Join(errs...)
}
