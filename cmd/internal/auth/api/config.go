package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API request limits.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// RateLimitRPS is the sustained per-IP request rate on /auth/*.
	// Zero or negative disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// DefaultConfig returns the production baseline.
func DefaultConfig() Config {
	return Config{
		TrustProxy:     false,
		MaxBodyBytes:   64 << 10, // 64 KiB
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:     envBool("WARDEN_AUTH_TRUST_PROXY", def.TrustProxy),
		MaxBodyBytes:   envInt64("WARDEN_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		RateLimitRPS:   envFloat("WARDEN_AUTH_RATE_LIMIT_RPS", def.RateLimitRPS),
		RateLimitBurst: envInt("WARDEN_AUTH_RATE_LIMIT_BURST", def.RateLimitBurst),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 1
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// envFloat accepts 0 so limiting can be switched off explicitly.
func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}
