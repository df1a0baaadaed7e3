package notify

import (
	"errors"
	"fmt"
)

var (
	ErrEndpointMissing = errors.New("notify: email service endpoint not configured")
	ErrEndpointInvalid = errors.New("notify: email service endpoint invalid")
	ErrQueueClosed     = errors.New("notify: queue closed")
)

// notificationError describes one failed delivery attempt. It never leaves this package.
type notificationError struct {
	Attempt int
	Status  int
	Err     error
}

func (e *notificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attempt %d: %v", e.Attempt, e.Err)
	}
	return fmt.Sprintf("attempt %d: unexpected status %d", e.Attempt, e.Status)
}

func (e *notificationError) Unwrap() error { return e.Err }
