// Package app wires the warden server runtime: config, logging, stores, notification delivery and HTTP routes.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	authapi "warden/cmd/internal/auth/api"
	"warden/cmd/internal/auth/account"
	"warden/cmd/internal/auth/session"
	"warden/cmd/internal/metrics"
	"warden/cmd/internal/notify"
	"warden/cmd/security/token"
)

// App is the warden server runtime: it owns the stores, the notification
// queue and the HTTP server wiring.
type App struct {
	cfg Config
	log Logger

	stores  *Stores
	metrics *metrics.Metrics
	queue   *notify.Queue
	auth    *authapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	stores, err := OpenStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := newWithStores(cfg, log, stores)
	if err != nil {
		stores.Close()
		return nil, err
	}
	return a, nil
}

func newWithStores(cfg Config, log Logger, stores *Stores) (*App, error) {
	m := metrics.New()

	var notifier account.Notifier = account.NoopNotifier{}
	var queue *notify.Queue
	if cfg.Notify.Enabled() {
		dispatcher := notify.NewDispatcher(cfg.Notify, log, notify.WithRecorder(m))
		queue = notify.NewQueue(dispatcher, log)
		notifier = queue
	} else {
		log.Info("notify.disabled", "reason", notify.ErrEndpointMissing.Error())
	}

	registrar := account.NewRegistrar(
		stores.Identities,
		cfg.Password.Policy,
		cfg.Password,
		account.WithNotifier(notifier),
		account.WithLogger(log),
	)
	authenticator := session.NewAuthenticator(stores.Identities, cfg.Password, cfg.Password, token.Issuer{}, log)
	revoker := session.NewRevoker(stores.Revocations, log, time.Now)

	auth, err := authapi.NewHandler(log, cfg.Auth, registrar, authenticator, revoker, authapi.WithRecorder(m))
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		stores:  stores,
		metrics: m,
		queue:   queue,
		auth:    auth,
	}, nil
}

// Handler returns the full HTTP handler chain.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.stores, a.metrics, a.auth)
	return WithRequestID(WithRequestLogging(WithSecurityHeaders(mux), a.log, a.metrics))
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		a.log.Error("server.fail", "err", err)
		a.close(context.Background())
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until ctx is canceled, then drains
// in-flight requests, pending notifications and store connections.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", ln.Addr().String(),
		"db_enabled", a.cfg.DBEnabled(),
		"revocation_backend", a.stores.Backend,
		"notify_enabled", a.queue != nil,
	)

	purgeCtx, stopPurge := context.WithCancel(ctx)
	purgeDone := make(chan struct{})
	go func() {
		defer close(purgeDone)
		a.runPurgeLoop(purgeCtx, a.cfg.RevocationPurgeInterval)
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case runErr = <-errCh:
		a.log.Error("server.fail", "err", runErr)
	}

	stopPurge()
	<-purgeDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		runErr = errors.Join(runErr, err)
	}
	a.close(shutdownCtx)

	if runErr == nil {
		a.log.Info("server.stopped")
	}
	return runErr
}

// close drains the notification queue before releasing stores.
func (a *App) close(ctx context.Context) {
	if a.queue != nil {
		if err := a.queue.Close(ctx); err != nil {
			a.log.Warn("notify.queue.close_fail", "err", err)
		}
	}
	a.stores.Close()
}
