package snapshot

import (
	"sync"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// MemStore is an in-memory Storage implementation, used by unit tests that
// exercise the Ledger without touching the filesystem.
type MemStore struct {
	mu   sync.Mutex
	data map[Tier]displayapi.Snapshot
}

// NewMemStore builds an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[Tier]displayapi.Snapshot)}
}

// Read implements Storage.
func (m *MemStore) Read(tier Tier) (displayapi.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.data[tier]
	return snap, ok, nil
}

// Write implements Storage.
func (m *MemStore) Write(tier Tier, snap displayapi.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[tier] = snap
	return nil
}

// Delete implements Storage.
func (m *MemStore) Delete(tier Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, tier)
	return nil
}
