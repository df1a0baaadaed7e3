package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements identity persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// Schema/table identifiers are quoted to avoid SQL injection via identifiers.
type PostgresStore struct {
	db     DB
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultSchema is the Postgres schema used when WithSchema is not given.
const DefaultSchema = "warden"

// WithSchema sets the Postgres schema used by the identity store (default "warden").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !PgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db DB, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		db:     db,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return st, nil
}

// GetByEmail loads an identity by exact email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (Identity, error) {
	const op = "identity.GetByEmail"

	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	identities := pgIdent(s.schema, "identities")

	var out Identity
	err := s.db.QueryRow(ctx,
		`SELECT id, email, display_name, credential_hash, created_at
		   FROM `+identities+`
		  WHERE email = $1`,
		email,
	).Scan(&out.ID, &out.Email, &out.DisplayName, &out.CredentialHash, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, NotFoundError{Op: op, Resource: "identity"}
		}
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Begin opens a read-committed transaction for a registration.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity.Begin: %w", err)
	}
	return &postgresTx{tx: tx, schema: s.schema}, nil
}

type postgresTx struct {
	tx     pgx.Tx
	schema string
}

func (t *postgresTx) EmailExists(ctx context.Context, email string) (bool, error) {
	identities := pgIdent(t.schema, "identities")

	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+identities+` WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("identity.EmailExists: %w", err)
	}
	return exists, nil
}

func (t *postgresTx) Insert(ctx context.Context, in Identity) error {
	const op = "identity.Insert"

	if strings.TrimSpace(in.ID) == "" || in.Email == "" || in.CredentialHash == "" {
		return pgInvalid(op, "id, email and credential hash are required")
	}

	identities := pgIdent(t.schema, "identities")

	_, err := t.tx.Exec(ctx,
		`INSERT INTO `+identities+` (id, email, display_name, credential_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		in.ID, in.Email, in.DisplayName, in.CredentialHash, in.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return ErrTxDone
		}
		return fmt.Errorf("identity.Commit: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("identity.Rollback: %w", err)
	}
	return nil
}

// ---- helpers ----

// pgInvalid standardizes invalid input errors.
func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

// PgIdentIsValid checks if a string is a safe Postgres identifier.
func PgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != pgerrcode.UniqueViolation {
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_identities_email":
		return "email", true
	case "identities_pkey":
		return "id", true
	default:
		if strings.Contains(c, "email") {
			return "email", true
		}
		return "unique", true
	}
}
