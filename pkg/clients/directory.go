package clients

import (
	"context"
	"sync"

	"github.com/noahsatkunam/chatflow/pkg/protocol"
)

// StaticDirectory resolves roles from an in-memory table, falling back to a
// default role when the user is unlisted. Suits single-tenant and development
// deployments; multi-tenant installations plug in their own Directory.
type StaticDirectory struct {
	mu          sync.RWMutex
	roles       map[string]string // tenantID:userID -> role
	defaultRole string
}

func NewStaticDirectory(defaultRole string) *StaticDirectory {
	return &StaticDirectory{
		roles:       make(map[string]string),
		defaultRole: defaultRole,
	}
}

// SetRole pins a user's role.
func (d *StaticDirectory) SetRole(tenantID, userID, role string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.roles[tenantID+":"+userID] = role
}

// GetRole returns the pinned role, the default role, or ErrUserNotFound when
// no default is configured.
func (d *StaticDirectory) GetRole(_ context.Context, userID, tenantID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	role, ok := d.roles[tenantID+":"+userID]
	if ok {
		return role, nil
	}

	if d.defaultRole == "" {
		return "", protocol.ErrUserNotFound
	}

	return d.defaultRole, nil
}
