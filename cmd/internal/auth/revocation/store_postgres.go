package revocation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists entries in the token_revocations table.
// The pool is owned by the caller.
type PostgresStore struct {
	db     DB
	schema string
	now    func() time.Time
}

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewPostgresStore constructs a PostgresStore in schema.
func NewPostgresStore(db DB, schema string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("revocation: nil db")
	}
	schema = strings.TrimSpace(schema)
	if !pgIdentRe.MatchString(schema) {
		return nil, fmt.Errorf("revocation: invalid schema identifier")
	}
	return &PostgresStore{db: db, schema: schema, now: time.Now}, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "token_revocations"}.Sanitize()
}

func (s *PostgresStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.table()+` WHERE token = $1)`,
		token,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("revocation.IsRevoked: %w", err)
	}
	return exists, nil
}

// Revoke relies on the primary key: ON CONFLICT DO NOTHING affects zero rows
// for a duplicate, which is reported as ErrAlreadyRevoked.
func (s *PostgresStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO `+s.table()+` (token, expires_at, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO NOTHING`,
		token, expiresAt.UTC(), s.now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyRevoked
		}
		return fmt.Errorf("revocation.Revoke: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyRevoked
	}
	return nil
}

func (s *PostgresStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM `+s.table()+` WHERE expires_at < $1`,
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("revocation.Purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
