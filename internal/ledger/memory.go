package ledger

import (
	"context"
	"sync"
)

// Memory is the default in-process ledger: a mutex-guarded digest set.
// Membership lasts for the process lifetime only.
type Memory struct {
	mu       sync.Mutex
	admitted map[string]struct{}
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{admitted: make(map[string]struct{})}
}

// TryAdmit atomically checks and marks the identity as admitted.
func (m *Memory) TryAdmit(ctx context.Context, canonicalID string) (bool, error) {
	d := digest(canonicalID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, done := m.admitted[d]; done {
		return false, nil
	}
	m.admitted[d] = struct{}{}
	return true, nil
}

// Admitted reports whether the identity has completed admission.
func (m *Memory) Admitted(ctx context.Context, canonicalID string) (bool, error) {
	d := digest(canonicalID)

	m.mu.Lock()
	defer m.mu.Unlock()

	_, done := m.admitted[d]
	return done, nil
}

// Size returns the number of admitted identities.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.admitted)
}
