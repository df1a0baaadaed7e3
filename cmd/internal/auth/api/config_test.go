package authapi

import "testing"

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg := LoadConfigFromEnv()
	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("expected defaults %+v, got %+v", def, cfg)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("WARDEN_AUTH_TRUST_PROXY", "true")
	t.Setenv("WARDEN_AUTH_MAX_BODY_BYTES", "2048")
	t.Setenv("WARDEN_AUTH_RATE_LIMIT_RPS", "0.5")
	t.Setenv("WARDEN_AUTH_RATE_LIMIT_BURST", "3")

	cfg := LoadConfigFromEnv()
	if !cfg.TrustProxy {
		t.Fatalf("expected TrustProxy")
	}
	if cfg.MaxBodyBytes != 2048 {
		t.Fatalf("MaxBodyBytes=%d", cfg.MaxBodyBytes)
	}
	if cfg.RateLimitRPS != 0.5 || cfg.RateLimitBurst != 3 {
		t.Fatalf("rate limit=%v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadConfigFromEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("WARDEN_AUTH_TRUST_PROXY", "maybe")
	t.Setenv("WARDEN_AUTH_MAX_BODY_BYTES", "-1")
	t.Setenv("WARDEN_AUTH_RATE_LIMIT_RPS", "fast")

	cfg := LoadConfigFromEnv()
	def := DefaultConfig()
	if cfg.TrustProxy != def.TrustProxy || cfg.MaxBodyBytes != def.MaxBodyBytes || cfg.RateLimitRPS != def.RateLimitRPS {
		t.Fatalf("expected fallback to defaults, got %+v", cfg)
	}
}

func TestLoadConfigFromEnv_ZeroRPSDisables(t *testing.T) {
	t.Setenv("WARDEN_AUTH_RATE_LIMIT_RPS", "0")

	cfg := LoadConfigFromEnv()
	if cfg.RateLimitRPS != 0 {
		t.Fatalf("expected limiting disabled, got rps=%v", cfg.RateLimitRPS)
	}
	if newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst) != nil {
		t.Fatalf("expected nil limiter when rps is zero")
	}
}
