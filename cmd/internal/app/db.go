package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"warden/cmd/internal/migrations"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
// It does not run migrations; see PrepareSchema.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// PrepareSchema creates the configured schema and, when DBAutoMigrate is set,
// applies pending migrations before the stores are used.
func PrepareSchema(ctx context.Context, cfg Config, pool *pgxpool.Pool, log Logger) error {
	if err := migrations.EnsureSchema(ctx, pool, cfg.DBSchema); err != nil {
		return err
	}
	if !cfg.DBAutoMigrate {
		return nil
	}

	m, err := migrations.NewMigrator(cfg.DatabaseURL, cfg.DBSchema)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			log.Warn("db.migrate.close_fail", "err", cerr)
		}
	}()

	if err := m.Up(); err != nil {
		return err
	}
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("db: schema %q is dirty at version %d", cfg.DBSchema, v)
	}
	log.Info("db.migrate.ok", "schema", cfg.DBSchema, "version", v)
	return nil
}
