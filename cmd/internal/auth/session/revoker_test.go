package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/cmd/internal/auth"
	"warden/cmd/internal/auth/revocation"
)

// recordingStore captures the expiry passed to Revoke.
type recordingStore struct {
	*revocation.MemoryStore

	mu        sync.Mutex
	expiries  map[string]time.Time
	lookupErr error
	revokeErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: revocation.NewMemoryStore(), expiries: map[string]time.Time{}}
}

func (s *recordingStore) IsRevoked(ctx context.Context, tok string) (bool, error) {
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	return s.MemoryStore.IsRevoked(ctx, tok)
}

func (s *recordingStore) Revoke(ctx context.Context, tok string, expiresAt time.Time) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	if err := s.MemoryStore.Revoke(ctx, tok, expiresAt); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiries[tok] = expiresAt
	return nil
}

// racingStore reports "not revoked" to everyone, so both callers reach Revoke.
type racingStore struct {
	*revocation.MemoryStore
}

func (racingStore) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func TestRevoke_RecordsTokenForOneHour(t *testing.T) {
	store := newRecordingStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRevoker(store, quietLogger(), func() time.Time { return now })

	require.NoError(t, r.Revoke(context.Background(), "Bearer abc123"))

	assert.Equal(t, now.Add(time.Hour), store.expiries["abc123"])
}

func TestRevoke_Twice(t *testing.T) {
	r := NewRevoker(revocation.NewMemoryStore(), quietLogger(), nil)

	require.NoError(t, r.Revoke(context.Background(), "Bearer abc123"))
	err := r.Revoke(context.Background(), "Bearer abc123")
	assert.ErrorIs(t, err, auth.ErrAlreadyInvalidated)
}

func TestRevoke_MalformedHeader(t *testing.T) {
	store := newRecordingStore()
	r := NewRevoker(store, quietLogger(), nil)

	for _, h := range []string{"", "Bearer", "Bearer ", "Token abc", "bearer abc"} {
		err := r.Revoke(context.Background(), h)
		assert.ErrorIs(t, err, auth.ErrMalformedHeader, "header %q", h)
	}
	assert.Empty(t, store.expiries)
}

func TestRevoke_NeverIssuedTokenIsAccepted(t *testing.T) {
	r := NewRevoker(revocation.NewMemoryStore(), quietLogger(), nil)
	assert.NoError(t, r.Revoke(context.Background(), "Bearer made-up-token"))
}

func TestRevoke_StorageFailures(t *testing.T) {
	boom := errors.New("db down")

	store := newRecordingStore()
	store.lookupErr = boom
	err := NewRevoker(store, quietLogger(), nil).Revoke(context.Background(), "Bearer abc")
	assert.ErrorIs(t, err, auth.ErrStorage)

	store = newRecordingStore()
	store.revokeErr = boom
	err = NewRevoker(store, quietLogger(), nil).Revoke(context.Background(), "Bearer abc")
	assert.ErrorIs(t, err, auth.ErrStorage)
}

func TestRevoke_LostRaceIsAlreadyInvalidated(t *testing.T) {
	r := NewRevoker(racingStore{revocation.NewMemoryStore()}, quietLogger(), nil)

	var (
		wg     sync.WaitGroup
		ok     atomic.Int32
		losers atomic.Int32
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Revoke(context.Background(), "Bearer contested")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, auth.ErrAlreadyInvalidated):
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), losers.Load())
}
