package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"warden/cmd/identity"
	"warden/cmd/internal/auth"
	"warden/cmd/internal/auth/account"
)

// Registrar creates identities.
type Registrar interface {
	Register(ctx context.Context, in account.RegisterInput) (identity.Identity, error)
}

// Authenticator exchanges credentials for an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
}

// Revoker invalidates the bearer token carried in an Authorization header.
type Revoker interface {
	Revoke(ctx context.Context, authorizationHeader string) error
}

// Recorder receives per-operation outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	AuthOutcome(operation, result string)
}

type noopRecorder struct{}

func (noopRecorder) AuthOutcome(string, string) {}

// Handler wires HTTP auth endpoints to the account and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	registrar     Registrar
	authenticator Authenticator
	revoker       Revoker

	recorder  Recorder
	validator *requestValidator
	limiter   *ipRateLimiter
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithRecorder overrides the default no-op outcome recorder.
func WithRecorder(rec Recorder) HandlerOption {
	return func(h *Handler) {
		if h == nil || rec == nil {
			return
		}
		h.recorder = rec
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, reg Registrar, authn Authenticator, rev Revoker, opts ...HandlerOption) (*Handler, error) {
	if reg == nil || authn == nil || rev == nil {
		return nil, errors.New("authapi: registrar, authenticator and revoker are required")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:           log,
		cfg:           cfg,
		registrar:     reg,
		authenticator: authn,
		revoker:       rev,
		recorder:      noopRecorder{},
		validator:     newRequestValidator(),
		limiter:       newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.limit(h.handleRegister))
	mux.HandleFunc("/auth/login", h.limit(h.handleLogin))
	mux.HandleFunc("/auth/logout", h.limit(h.handleLogout))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "register"
	if !allowPost(w, r) {
		return
	}

	var req registerRequest
	if !h.decodeAndValidate(w, r, op, &req) {
		return
	}

	_, err := h.registrar.Register(r.Context(), account.RegisterInput{
		Email:       req.Email,
		DisplayName: req.FullName,
		Password:    req.Password,
	})
	if err != nil {
		h.writeAuthError(w, op, err)
		return
	}

	h.recorder.AuthOutcome(op, "ok")
	writeJSON(w, http.StatusOK, messageResponse{Message: "User registered successfully"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "login"
	if !allowPost(w, r) {
		return
	}

	var req loginRequest
	if !h.decodeAndValidate(w, r, op, &req) {
		return
	}

	token, err := h.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, op, err)
		return
	}

	h.recorder.AuthOutcome(op, "ok")
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	const op = "logout"
	if !allowPost(w, r) {
		return
	}

	if err := h.revoker.Revoke(r.Context(), r.Header.Get("Authorization")); err != nil {
		h.writeAuthError(w, op, err)
		return
	}

	h.recorder.AuthOutcome(op, "ok")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful, token invalidated."})
}

// ---- helpers ----

func allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// decodeAndValidate writes the error response itself and reports whether the handler may continue.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, dst); err != nil {
		h.recorder.AuthOutcome(op, auth.ErrValidation.Error())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
			return false
		}
		writeError(w, http.StatusUnprocessableEntity, "invalid_json", "Invalid request body")
		return false
	}

	msg, err := h.validator.check(dst)
	if err != nil {
		h.log.Error("auth."+op+".validate.fail", "err", err)
		h.recorder.AuthOutcome(op, auth.ErrInternal.Error())
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return false
	}
	if msg != "" {
		h.recorder.AuthOutcome(op, auth.ErrValidation.Error())
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", msg)
		return false
	}
	return true
}

// writeAuthError maps an auth error kind to its HTTP status and logs it with its
// category. The cause is logged, never written.
func (h *Handler) writeAuthError(w http.ResponseWriter, op string, err error) {
	kind := auth.KindOf(err)
	category := auth.CategoryOf(err)
	h.recorder.AuthOutcome(op, kind.Error())

	switch category {
	case auth.CategoryStorage, auth.CategoryInternal:
	default:
		h.log.Info("auth."+op+".rejected", "kind", kind.Error(), "category", string(category))
	}

	switch kind {
	case auth.ErrEmailTaken:
		writeError(w, http.StatusBadRequest, kind.Error(), "Email already registered")
	case auth.ErrWeakPassword, auth.ErrValidation:
		msg := auth.ReasonOf(err)
		if msg == "" {
			msg = "Invalid request"
		}
		writeError(w, http.StatusUnprocessableEntity, kind.Error(), msg)
	case auth.ErrInvalidCredentials:
		writeError(w, http.StatusUnauthorized, kind.Error(), "Invalid credentials")
	case auth.ErrMalformedHeader:
		writeError(w, http.StatusBadRequest, kind.Error(), "Missing or malformed Authorization header")
	case auth.ErrAlreadyInvalidated:
		writeError(w, http.StatusUnauthorized, kind.Error(), "Token already invalidated")
	default:
		h.log.Error("auth."+op+".fail", "kind", kind.Error(), "category", string(category), "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
