package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Sender is the synchronous delivery step run by a Queue.
type Sender interface {
	Dispatch(ctx context.Context, recipient, name string)
}

// Queue runs each dispatch on its own goroutine so callers never wait on delivery.
//
// Dispatches are detached from the caller's cancellation but keep its values.
// Close stops accepting work and waits for in-flight dispatches.
type Queue struct {
	sender Sender
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	// base is canceled when Close gives up waiting.
	base   context.Context
	cancel context.CancelFunc
}

// NewQueue wraps sender.
func NewQueue(sender Sender, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Queue{sender: sender, log: log, base: base, cancel: cancel}
}

// NotifyRegistered schedules a welcome notification and returns immediately.
func (q *Queue) NotifyRegistered(ctx context.Context, recipient, name string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Warn("notify.drop", "reason", ErrQueueClosed.Error())
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer q.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				q.log.Error("notify.panic", "panic", r)
			}
		}()

		dctx, stop := context.WithCancel(detached)
		defer stop()
		unlink := context.AfterFunc(q.base, stop)
		defer unlink()

		q.sender.Dispatch(dctx, recipient, name)
	}()
}

// Close waits for in-flight dispatches until ctx is done, then cancels the rest.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}
