package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"warden/cmd/identity"
	"warden/cmd/internal/auth/revocation"
)

// Stores owns the persistence backends selected by Config.
type Stores struct {
	Identities  identity.Store
	Revocations revocation.Store
	// Purger is nil when the revocation backend expires entries itself (redis).
	Purger revocation.Purger

	Backend string

	pool  *pgxpool.Pool
	redis *redis.Client
}

// OpenStores decides between Postgres-backed persistence and in-memory dev stores,
// then picks the revocation backend.
func OpenStores(ctx context.Context, cfg Config, log Logger) (*Stores, error) {
	st := &Stores{Backend: cfg.ResolvedRevocationBackend()}

	if cfg.DBEnabled() {
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		st.pool = pool

		if err := PrepareSchema(ctx, cfg, pool, log); err != nil {
			st.Close()
			return nil, err
		}

		ids, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
		if err != nil {
			st.Close()
			return nil, err
		}
		st.Identities = ids
		log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	} else {
		st.Identities = identity.NewMemoryStore()
		log.Info("db.disabled.inmemory_store")
	}

	if err := st.openRevocations(ctx, cfg); err != nil {
		st.Close()
		return nil, err
	}
	log.Info("revocation.backend", "backend", st.Backend)
	return st, nil
}

func (s *Stores) openRevocations(ctx context.Context, cfg Config) error {
	switch s.Backend {
	case RevocationPostgres:
		if s.pool == nil {
			return errors.New("revocation: postgres backend requires WARDEN_DATABASE_URL")
		}
		pg, err := revocation.NewPostgresStore(s.pool, cfg.DBSchema)
		if err != nil {
			return err
		}
		s.Revocations, s.Purger = pg, pg
	case RevocationRedis:
		client, err := revocation.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("revocation: redis ping: %w", err)
		}
		s.redis = client
		s.Revocations = revocation.NewRedisStore(client, cfg.RedisKeyPrefix)
	default:
		mem := revocation.NewMemoryStore()
		s.Revocations, s.Purger = mem, mem
	}
	return nil
}

// Pool returns the Postgres pool, or nil in memory mode.
func (s *Stores) Pool() *pgxpool.Pool { return s.pool }

// Ping checks every remote backend.
func (s *Stores) Ping(ctx context.Context) error {
	if s.pool != nil {
		if err := PingDB(ctx, s.pool, 2*time.Second); err != nil {
			return fmt.Errorf("db: %w", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases the pool and redis client. Safe to call more than once.
func (s *Stores) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
		s.redis = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}
