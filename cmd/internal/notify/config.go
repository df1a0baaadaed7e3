package notify

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Delivery defaults.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultBackoff     = 1 * time.Second
	DefaultMaxAttempts = 3
	DefaultSubject     = "Welcome to Warden"
)

// Config is injected at construction; nothing is read from the environment at dispatch time.
type Config struct {
	// Endpoint is the email service URL. Empty disables delivery.
	Endpoint string
	// APIKey is sent as a bearer credential. Never logged.
	APIKey string

	Timeout     time.Duration
	Backoff     time.Duration
	MaxAttempts int
	Subject     string
}

// DefaultConfig returns delivery defaults with no endpoint.
func DefaultConfig() Config {
	return Config{
		Timeout:     DefaultTimeout,
		Backoff:     DefaultBackoff,
		MaxAttempts: DefaultMaxAttempts,
		Subject:     DefaultSubject,
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
//   - WARDEN_EMAIL_SERVICE_URL
//   - WARDEN_EMAIL_API_KEY
//   - WARDEN_EMAIL_TIMEOUT (Go duration)
//   - WARDEN_EMAIL_BACKOFF (Go duration)
//   - WARDEN_EMAIL_MAX_ATTEMPTS (1..3)
//   - WARDEN_EMAIL_SUBJECT
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.Endpoint = strings.TrimSpace(os.Getenv("WARDEN_EMAIL_SERVICE_URL"))
	cfg.APIKey = strings.TrimSpace(os.Getenv("WARDEN_EMAIL_API_KEY"))

	if v := strings.TrimSpace(os.Getenv("WARDEN_EMAIL_SUBJECT")); v != "" {
		cfg.Subject = v
	}

	if v := strings.TrimSpace(os.Getenv("WARDEN_EMAIL_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("WARDEN_EMAIL_TIMEOUT: invalid duration %q", v)
		}
		cfg.Timeout = d
	}

	if v := strings.TrimSpace(os.Getenv("WARDEN_EMAIL_BACKOFF")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("WARDEN_EMAIL_BACKOFF: invalid duration %q", v)
		}
		cfg.Backoff = d
	}

	if v := strings.TrimSpace(os.Getenv("WARDEN_EMAIL_MAX_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("WARDEN_EMAIL_MAX_ATTEMPTS: invalid value %q", v)
		}
		cfg.MaxAttempts = n
	}

	return cfg.normalized(), nil
}

// normalized trims the endpoint, fills zero values and clamps attempts to [1..DefaultMaxAttempts].
func (c Config) normalized() Config {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.MaxAttempts <= 0 || c.MaxAttempts > DefaultMaxAttempts {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if strings.TrimSpace(c.Subject) == "" {
		c.Subject = DefaultSubject
	}
	return c
}

// Enabled reports whether an endpoint is configured at all.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Endpoint) != "" }

// ValidateEndpoint checks that raw is an absolute https URL with a host.
func ValidateEndpoint(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrEndpointMissing
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEndpointInvalid, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: scheme must be https with a host", ErrEndpointInvalid)
	}
	return nil
}
