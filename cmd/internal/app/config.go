package app

import (
	"fmt"
	"strings"
	"time"

	"warden/cmd/identity"
	authapi "warden/cmd/internal/auth/api"
	"warden/cmd/internal/auth/revocation"
	"warden/cmd/internal/notify"
	"warden/cmd/security/password"
)

// Revocation backends.
const (
	RevocationAuto     = "auto"
	RevocationPostgres = "postgres"
	RevocationRedis    = "redis"
	RevocationMemory   = "memory"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	// DatabaseURL empty selects the in-memory stores.
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBSchema      string
	DBAutoMigrate bool

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	RevocationBackend string
	RedisURL          string
	RedisKeyPrefix    string

	// RevocationPurgeInterval is how often the server drops expired
	// revocations. Zero disables the loop.
	RevocationPurgeInterval time.Duration

	Auth     authapi.Config
	Password password.Config
	Notify   notify.Config
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	pw, err := password.FromEnv()
	if err != nil {
		return Config{}, err
	}
	nt, err := notify.FromEnv()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr:  EnvString("WARDEN_HTTP_ADDR", "0.0.0.0:8000"),
		LogLevel:  EnvString("WARDEN_LOG_LEVEL", "info"),
		LogFormat: EnvString("WARDEN_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("WARDEN_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("WARDEN_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("WARDEN_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("WARDEN_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("WARDEN_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("WARDEN_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("WARDEN_DATABASE_URL", ""),
		DBMaxConns:    EnvInt32("WARDEN_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("WARDEN_DB_MIN_CONNS", 0),
		DBSchema:      EnvString("WARDEN_DB_SCHEMA", identity.DefaultSchema),
		DBAutoMigrate: EnvBool("WARDEN_DB_AUTO_MIGRATE", false),

		ReadinessRequireDB: EnvBool("WARDEN_READINESS_REQUIRE_DB", false),

		RevocationBackend: strings.ToLower(EnvString("WARDEN_REVOCATION_BACKEND", RevocationAuto)),
		RedisURL:          EnvString("WARDEN_REDIS_URL", ""),
		RedisKeyPrefix:    EnvString("WARDEN_REDIS_KEY_PREFIX", revocation.DefaultRedisKeyPrefix),

		RevocationPurgeInterval: EnvDurationNonNeg("WARDEN_REVOCATION_PURGE_INTERVAL", time.Hour),

		Auth:     authapi.LoadConfigFromEnv(),
		Password: pw,
		Notify:   nt,
	}

	switch cfg.RevocationBackend {
	case RevocationAuto, RevocationPostgres, RevocationRedis, RevocationMemory:
	default:
		return Config{}, fmt.Errorf("WARDEN_REVOCATION_BACKEND: unknown backend %q", cfg.RevocationBackend)
	}
	return cfg, nil
}

// DBEnabled reports whether a Postgres URL is configured.
func (c Config) DBEnabled() bool { return c.DatabaseURL != "" }

// ResolvedRevocationBackend resolves "auto": postgres when a DB is configured, else memory.
func (c Config) ResolvedRevocationBackend() string {
	if c.RevocationBackend != RevocationAuto && c.RevocationBackend != "" {
		return c.RevocationBackend
	}
	if c.DBEnabled() {
		return RevocationPostgres
	}
	return RevocationMemory
}
