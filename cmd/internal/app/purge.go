package app

import (
	"context"
	"time"

	"warden/cmd/internal/auth/revocation"
	"warden/cmd/internal/metrics"
)

// PurgeRevocations deletes revocation entries that expired before before.
// Tokens are only checked within their window, so expired rows are dead weight.
func PurgeRevocations(ctx context.Context, p revocation.Purger, before time.Time, m *metrics.Metrics, log Logger) (int64, error) {
	n, err := p.Purge(ctx, before)
	if err != nil {
		log.Error("revocation.purge.fail", "err", err)
		return 0, err
	}
	m.RevocationsPurged(n)
	log.Info("revocation.purge.ok", "purged", n, "before", before.UTC())
	return n, nil
}

// runPurgeLoop purges expired revocations every interval until ctx is done.
func (a *App) runPurgeLoop(ctx context.Context, interval time.Duration) {
	if a.stores.Purger == nil || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			_, _ = PurgeRevocations(ctx, a.stores.Purger, now, a.metrics, a.log)
		}
	}
}
