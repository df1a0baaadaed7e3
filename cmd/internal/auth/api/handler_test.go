package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/cmd/identity"
	"warden/cmd/internal/auth"
	"warden/cmd/internal/auth/account"
	"warden/cmd/internal/auth/revocation"
	"warden/cmd/internal/auth/session"
	"warden/cmd/security/password"
	"warden/cmd/security/token"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingRecorder struct {
	mu   sync.Mutex
	seen map[string]int
}

func (r *countingRecorder) AuthOutcome(op, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = map[string]int{}
	}
	r.seen[op+"/"+result]++
}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[key]
}

// newTestServer wires the real in-memory services behind the handler.
func newTestServer(t *testing.T, cfg Config, rec Recorder) *httptest.Server {
	t.Helper()

	log := discardLogger()
	pw := password.LowCostConfig()
	identities := identity.NewMemoryStore()

	reg := account.NewRegistrar(identities, pw.Policy, pw, account.WithLogger(log))
	authn := session.NewAuthenticator(identities, pw, pw, token.Issuer{}, log)
	rev := session.NewRevoker(revocation.NewMemoryStore(), log, time.Now)

	var opts []HandlerOption
	if rec != nil {
		opts = append(opts, WithRecorder(rec))
	}
	h, err := NewHandler(log, cfg, reg, authn, rev, opts...)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func noLimitConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimitRPS = 0
	return cfg
}

type response struct {
	status int
	header http.Header
	body   map[string]any
}

func (r response) errorCode() string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (r response) errorMessage() string {
	e, _ := r.body["error"].(map[string]any)
	msg, _ := e["message"].(string)
	return msg
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, header map[string]string) response {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := response{status: resp.StatusCode, header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), "body=%s", raw)
	}
	return out
}

const aliceRegister = `{"email":"alice@example.com","full_name":"Alice","password":"Secret123"}`
const aliceLogin = `{"email":"alice@example.com","password":"Secret123"}`

func TestHandler_RegisterLoginLogoutFlow(t *testing.T) {
	rec := &countingRecorder{}
	srv := newTestServer(t, noLimitConfig(), rec)

	resp := do(t, srv, http.MethodPost, "/auth/register", aliceRegister, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "User registered successfully", resp.body["message"])
	assert.Equal(t, "no-store", resp.header.Get("Cache-Control"))

	resp = do(t, srv, http.MethodPost, "/auth/register", aliceRegister, nil)
	require.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Email already registered", resp.errorMessage())

	resp = do(t, srv, http.MethodPost, "/auth/login", aliceLogin, nil)
	require.Equal(t, http.StatusOK, resp.status)
	tok, _ := resp.body["access_token"].(string)
	require.Len(t, tok, 32)

	bearer := map[string]string{"Authorization": "Bearer " + tok}
	resp = do(t, srv, http.MethodPost, "/auth/logout", "", bearer)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "Logout successful, token invalidated.", resp.body["message"])

	resp = do(t, srv, http.MethodPost, "/auth/logout", "", bearer)
	require.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "Token already invalidated", resp.errorMessage())

	assert.Equal(t, 1, rec.count("register/ok"))
	assert.Equal(t, 1, rec.count("register/email_taken"))
	assert.Equal(t, 1, rec.count("login/ok"))
	assert.Equal(t, 1, rec.count("logout/ok"))
	assert.Equal(t, 1, rec.count("logout/already_invalidated"))
}

func TestHandler_LoginFailures(t *testing.T) {
	srv := newTestServer(t, noLimitConfig(), nil)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/auth/register", aliceRegister, nil).status)

	unknown := do(t, srv, http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"Secret123"}`, nil)
	wrong := do(t, srv, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"Wrong1234"}`, nil)

	for _, resp := range []response{unknown, wrong} {
		require.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "Invalid credentials", resp.errorMessage())
		assert.Equal(t, "invalid_credentials", resp.errorCode())
	}
}

func TestHandler_RegisterWeakPassword(t *testing.T) {
	srv := newTestServer(t, noLimitConfig(), nil)

	tests := []struct {
		password string
		want     string
	}{
		{password: "Pass1", want: "Password must be at least 8 characters long"},
		{password: "password1", want: "Password must contain at least one uppercase letter"},
		{password: "PASSWORD1", want: "Password must contain at least one lowercase letter"},
		{password: "Password", want: "Password must contain at least one number"},
	}
	for _, tc := range tests {
		body := `{"email":"weak@example.com","full_name":"Weak","password":"` + tc.password + `"}`
		resp := do(t, srv, http.MethodPost, "/auth/register", body, nil)
		require.Equal(t, http.StatusUnprocessableEntity, resp.status, tc.password)
		assert.Equal(t, "weak_password", resp.errorCode())
		assert.Equal(t, tc.want, resp.errorMessage())
	}

	// Nothing was persisted, so a strong password still registers.
	body := `{"email":"weak@example.com","full_name":"Weak","password":"Strong123"}`
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/auth/register", body, nil).status)
}

func TestHandler_RequestValidation(t *testing.T) {
	srv := newTestServer(t, noLimitConfig(), nil)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode string
	}{
		{name: "malformed json", path: "/auth/register", body: `{"email":`, wantCode: "invalid_json"},
		{name: "trailing data", path: "/auth/login", body: `{"email":"a@example.com","password":"x"} {}`, wantCode: "invalid_json"},
		{name: "missing full name", path: "/auth/register", body: `{"email":"a@example.com","password":"Secret123"}`, wantCode: "validation_failed"},
		{name: "bad email", path: "/auth/login", body: `{"email":"nope","password":"x"}`, wantCode: "validation_failed"},
		{name: "empty body", path: "/auth/login", body: "", wantCode: "invalid_json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, tc.path, tc.body, nil)
			require.Equal(t, http.StatusUnprocessableEntity, resp.status)
			assert.Equal(t, tc.wantCode, resp.errorCode())
		})
	}
}

func TestHandler_IgnoresUnknownFields(t *testing.T) {
	srv := newTestServer(t, noLimitConfig(), nil)

	body := `{"email":"a@b.com","full_name":"A B","password":"Password1","locale":"en","confirm_password":"Password1"}`
	resp := do(t, srv, http.MethodPost, "/auth/register", body, nil)
	require.Equal(t, http.StatusOK, resp.status)

	resp = do(t, srv, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"Password1","remember":true}`, nil)
	require.Equal(t, http.StatusOK, resp.status)
}

func TestHandler_BodyTooLarge(t *testing.T) {
	cfg := noLimitConfig()
	cfg.MaxBodyBytes = 32
	srv := newTestServer(t, cfg, nil)

	resp := do(t, srv, http.MethodPost, "/auth/register", aliceRegister, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.status)
	assert.Equal(t, "body_too_large", resp.errorCode())
}

func TestHandler_LogoutMalformedHeader(t *testing.T) {
	srv := newTestServer(t, noLimitConfig(), nil)

	for _, hdr := range []map[string]string{
		nil,
		{"Authorization": "Basic abc"},
		{"Authorization": "bearer abc"},
		{"Authorization": "Bearer "},
	} {
		resp := do(t, srv, http.MethodPost, "/auth/logout", "", hdr)
		require.Equal(t, http.StatusBadRequest, resp.status, "%v", hdr)
		assert.Equal(t, "Missing or malformed Authorization header", resp.errorMessage())
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, noLimitConfig(), nil)

	for _, path := range []string{"/auth/register", "/auth/login", "/auth/logout"} {
		resp := do(t, srv, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusMethodNotAllowed, resp.status, path)
		assert.Equal(t, http.MethodPost, resp.header.Get("Allow"))
	}
}

func TestHandler_RateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 2
	srv := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		resp := do(t, srv, http.MethodPost, "/auth/logout", "", nil)
		require.Equal(t, http.StatusBadRequest, resp.status)
	}
	resp := do(t, srv, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.status)
	assert.Equal(t, "rate_limited", resp.errorCode())
	assert.NotEmpty(t, resp.header.Get("Retry-After"))
}

type stubRegistrar struct{ err error }

func (s stubRegistrar) Register(context.Context, account.RegisterInput) (identity.Identity, error) {
	return identity.Identity{}, s.err
}

type stubAuthenticator struct{ err error }

func (s stubAuthenticator) Authenticate(context.Context, string, string) (string, error) {
	return "", s.err
}

type stubRevoker struct{ err error }

func (s stubRevoker) Revoke(context.Context, string) error { return s.err }

func TestHandler_InternalErrorsHideCause(t *testing.T) {
	cause := errors.New("pq: connection refused to 10.0.0.5")

	tests := []struct {
		name string
		err  error
	}{
		{name: "storage", err: auth.E("account.Register", auth.ErrStorage, cause)},
		{name: "internal", err: auth.E("account.Register", auth.ErrInternal, cause)},
		{name: "untyped", err: cause},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, err := NewHandler(discardLogger(), noLimitConfig(),
				stubRegistrar{err: tc.err}, stubAuthenticator{err: tc.err}, stubRevoker{err: tc.err})
			require.NoError(t, err)
			mux := http.NewServeMux()
			h.Register(mux)
			srv := httptest.NewServer(mux)
			defer srv.Close()

			for _, c := range []struct{ path, body string }{
				{"/auth/register", aliceRegister},
				{"/auth/login", aliceLogin},
				{"/auth/logout", ""},
			} {
				resp := do(t, srv, http.MethodPost, c.path, c.body, map[string]string{"Authorization": "Bearer abc"})
				require.Equal(t, http.StatusInternalServerError, resp.status, c.path)
				assert.Equal(t, "Internal server error", resp.errorMessage())
				assert.NotContains(t, resp.errorMessage(), "10.0.0.5")
			}
		})
	}
}

func TestNewHandler_RequiresServices(t *testing.T) {
	_, err := NewHandler(nil, DefaultConfig(), nil, stubAuthenticator{}, stubRevoker{})
	require.Error(t, err)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHandler_LogsErrorCategory(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		err      error
		status   int
		category string
	}{
		{name: "email taken", path: "/auth/register", body: aliceRegister, err: auth.E("account.Register", auth.ErrEmailTaken, nil), status: http.StatusBadRequest, category: "conflict"},
		{name: "already invalidated", path: "/auth/logout", err: auth.E("session.Revoke", auth.ErrAlreadyInvalidated, nil), status: http.StatusUnauthorized, category: "conflict"},
		{name: "invalid credentials", path: "/auth/login", body: aliceLogin, err: auth.E("session.Authenticate", auth.ErrInvalidCredentials, nil), status: http.StatusUnauthorized, category: "authentication"},
		{name: "malformed header", path: "/auth/logout", err: auth.E("session.Revoke", auth.ErrMalformedHeader, nil), status: http.StatusBadRequest, category: "malformed_request"},
		{name: "storage", path: "/auth/login", body: aliceLogin, err: auth.E("session.Authenticate", auth.ErrStorage, errors.New("db down")), status: http.StatusInternalServerError, category: "storage"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var logs syncBuffer
			log := slog.New(slog.NewTextHandler(&logs, nil))
			h, err := NewHandler(log, noLimitConfig(),
				stubRegistrar{err: tc.err}, stubAuthenticator{err: tc.err}, stubRevoker{err: tc.err})
			require.NoError(t, err)
			mux := http.NewServeMux()
			h.Register(mux)
			srv := httptest.NewServer(mux)
			defer srv.Close()

			resp := do(t, srv, http.MethodPost, tc.path, tc.body, map[string]string{"Authorization": "Bearer abc"})
			require.Equal(t, tc.status, resp.status)
			assert.Contains(t, logs.String(), "category="+tc.category)
		})
	}
}
