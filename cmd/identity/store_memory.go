package identity

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used when no database is configured.
//
// A Tx buffers inserts and takes the store lock only for the duration of each
// call. Commit rechecks every pending email under the write lock, so of two
// transactions racing on one email exactly one commits and the other gets a
// ConflictError.
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]Identity
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]Identity)}
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return Identity{}, NotFoundError{Op: "identity.GetByEmail", Resource: "identity"}
	}
	return id, nil
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{s: s, pending: make(map[string]Identity)}, nil
}

// Len reports the number of committed identities.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}

type memoryTx struct {
	s       *MemoryStore
	pending map[string]Identity
	done    bool
}

func (t *memoryTx) EmailExists(_ context.Context, email string) (bool, error) {
	if t.done {
		return false, ErrTxDone
	}
	if _, ok := t.pending[email]; ok {
		return true, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	_, ok := t.s.byEmail[email]
	return ok, nil
}

func (t *memoryTx) Insert(_ context.Context, in Identity) error {
	const op = "identity.Insert"

	if t.done {
		return ErrTxDone
	}
	if in.ID == "" || in.Email == "" || in.CredentialHash == "" {
		return pgInvalid(op, "id, email and credential hash are required")
	}
	if _, ok := t.pending[in.Email]; ok {
		return ConflictError{Op: op, Field: "email"}
	}
	t.s.mu.RLock()
	_, taken := t.s.byEmail[in.Email]
	t.s.mu.RUnlock()
	if taken {
		return ConflictError{Op: op, Field: "email"}
	}
	t.pending[in.Email] = in
	return nil
}

func (t *memoryTx) Commit(_ context.Context) error {
	if t.done {
		return ErrTxDone
	}
	defer t.finish()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for email := range t.pending {
		if _, ok := t.s.byEmail[email]; ok {
			return ConflictError{Op: "identity.Commit", Field: "email"}
		}
	}
	for email, id := range t.pending {
		t.s.byEmail[email] = id
	}
	return nil
}

func (t *memoryTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *memoryTx) finish() {
	t.done = true
	t.pending = nil
}
