package protocol

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned by a Directory when the user does not exist in
// the tenant.
var ErrUserNotFound = errors.New("user not found")

// Directory resolves users to their role within a tenant.
type Directory interface {
	GetRole(ctx context.Context, userID, tenantID string) (string, error)
}
