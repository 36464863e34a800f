package confirmation

import (
	"context"
	"sync"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// MemoryStore is an in-process confirmation store for tests and single-instance runs.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]*models.PendingConfirmation

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending: make(map[string]*models.PendingConfirmation),
		now:     time.Now,
	}
}

// Create stores the pending confirmation.
func (s *MemoryStore) Create(_ context.Context, pending *models.PendingConfirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[pending.ID] = pending

	return nil
}

// Find returns the confirmation when id, tenant and user match and it has not
// expired. Expired records are removed on read.
func (s *MemoryStore) Find(_ context.Context, id, tenantID, userID string) (*models.PendingConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.pending[id]
	if !ok {
		return nil, ErrNotFound
	}

	if pending.Expired(s.now()) {
		delete(s.pending, id)

		return nil, ErrNotFound
	}

	if pending.TenantID != tenantID || pending.UserID != userID {
		return nil, ErrNotFound
	}

	return pending, nil
}

// Delete removes the confirmation. Deleting an absent id is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)

	return nil
}

// Sweep removes confirmations that expired before now and returns how many
// were purged. The sweep is an eager complement to the lazy check in Find.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0

	for id, pending := range s.pending {
		if pending.Expired(now) {
			delete(s.pending, id)

			purged++
		}
	}

	return purged
}
