// Package notify delivers best-effort welcome notifications to an external email service.
//
// Delivery never reports failure to its caller: errors are logged and counted.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sethvargo/go-retry"
)

// Recorder receives delivery counters. *metrics.Metrics satisfies it.
type Recorder interface {
	NotifyAttempt(ok bool)
	NotifyResult(ok bool)
}

type noopRecorder struct{}

func (noopRecorder) NotifyAttempt(bool) {}
func (noopRecorder) NotifyResult(bool)  {}

// Payload is the JSON body posted to the email service.
type Payload struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Dispatcher posts welcome notifications with bounded retries.
type Dispatcher struct {
	cfg     Config
	client  *http.Client
	log     *slog.Logger
	metrics Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client. Its Timeout is replaced by Config.Timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.metrics = r
		}
	}
}

// NewDispatcher builds a Dispatcher. A nil logger uses slog.Default().
func NewDispatcher(cfg Config, log *slog.Logger, opts ...Option) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		cfg:     cfg.normalized(),
		client:  &http.Client{},
		log:     log,
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	// Per-attempt transport timeout.
	c := *d.client
	c.Timeout = d.cfg.Timeout
	d.client = &c
	return d
}

// Dispatch sends the welcome notification for recipient. It returns nothing:
// a missing or invalid endpoint is logged and skipped, and delivery failures
// are retried up to MaxAttempts with a fixed backoff, then logged.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient, name string) {
	if err := ValidateEndpoint(d.cfg.Endpoint); err != nil {
		d.log.Warn("notify.skip", "reason", err.Error())
		return
	}

	body, err := json.Marshal(Payload{
		Recipient: recipient,
		Name:      name,
		Subject:   d.cfg.Subject,
		Body:      welcomeBody(name),
	})
	if err != nil {
		d.log.Error("notify.encode.fail", "err", err)
		d.metrics.NotifyResult(false)
		return
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(d.cfg.MaxAttempts-1), retry.NewConstant(d.cfg.Backoff)) // #nosec G115 -- MaxAttempts is clamped to [1..3].

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := d.send(ctx, body, attempt); err != nil {
			d.metrics.NotifyAttempt(false)
			d.log.Warn("notify.deliver.retry",
				"attempt", attempt,
				"max_attempts", d.cfg.MaxAttempts,
				"err", err.Error(),
			)
			return retry.RetryableError(err)
		}
		d.metrics.NotifyAttempt(true)
		return nil
	})
	if err != nil {
		d.metrics.NotifyResult(false)
		d.log.Error("notify.deliver.fail",
			"attempts", attempt,
			"err", err.Error(),
		)
		return
	}

	d.metrics.NotifyResult(true)
	d.log.Info("notify.deliver.ok", "attempts", attempt)
}

func (d *Dispatcher) send(ctx context.Context, body []byte, attempt int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &notificationError{Attempt: attempt, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return &notificationError{Attempt: attempt, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return &notificationError{Attempt: attempt, Status: resp.StatusCode}
	}
	return nil
}

func welcomeBody(name string) string {
	return fmt.Sprintf("Hello %s,\n\nYour account has been created. Welcome aboard!", name)
}
