package permissions

import (
	"context"
	"sync"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// MemoryGrantStore is an in-process grant store for tests and local runs.
type MemoryGrantStore struct {
	mu     sync.RWMutex
	user   map[string]*models.ExecutionGrant // workflow:tenant:user
	role   map[string]*models.ExecutionGrant // workflow:tenant:role
	tenant map[string]*models.ExecutionGrant // tenant:role
}

// NewMemoryGrantStore creates an empty grant store.
func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{
		user:   make(map[string]*models.ExecutionGrant),
		role:   make(map[string]*models.ExecutionGrant),
		tenant: make(map[string]*models.ExecutionGrant),
	}
}

// SetUserGrant stores a per-user override for one workflow.
func (s *MemoryGrantStore) SetUserGrant(workflowID, tenantID, userID string, grant models.ExecutionGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user[workflowID+":"+tenantID+":"+userID] = &grant
}

// SetRoleGrant stores a per-role default for one workflow.
func (s *MemoryGrantStore) SetRoleGrant(workflowID, tenantID, role string, grant models.ExecutionGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role[workflowID+":"+tenantID+":"+role] = &grant
}

// SetTenantRoleGrant stores a tenant-wide per-role default.
func (s *MemoryGrantStore) SetTenantRoleGrant(tenantID, role string, grant models.ExecutionGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant[tenantID+":"+role] = &grant
}

// UserGrant returns the per-user override, or ErrGrantNotFound.
func (s *MemoryGrantStore) UserGrant(_ context.Context, workflowID, tenantID, userID string) (*models.ExecutionGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.user[workflowID+":"+tenantID+":"+userID]
	if !ok {
		return nil, ErrGrantNotFound
	}

	return grant, nil
}

// RoleGrant returns the per-role default, or ErrGrantNotFound.
func (s *MemoryGrantStore) RoleGrant(_ context.Context, workflowID, tenantID, role string) (*models.ExecutionGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.role[workflowID+":"+tenantID+":"+role]
	if !ok {
		return nil, ErrGrantNotFound
	}

	return grant, nil
}

// TenantRoleGrant returns the tenant-wide default, or ErrGrantNotFound.
func (s *MemoryGrantStore) TenantRoleGrant(_ context.Context, tenantID, role string) (*models.ExecutionGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.tenant[tenantID+":"+role]
	if !ok {
		return nil, ErrGrantNotFound
	}

	return grant, nil
}
