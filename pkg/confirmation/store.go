// Package confirmation persists pending execution requests behind short-lived,
// single-use confirmation tokens.
package confirmation

import (
	"context"
	"errors"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// DefaultTTL is how long a pending confirmation stays resolvable.
const DefaultTTL = 5 * time.Minute

// ErrNotFound indicates the confirmation does not exist, has expired, or
// belongs to a different tenant or user. The three cases are deliberately
// indistinguishable to callers.
var ErrNotFound = errors.New("confirmation not found or expired")

// Store persists pending confirmations. Find must check expiry lazily at read
// time; correctness never depends on a cleanup sweep having run.
type Store interface {
	Create(ctx context.Context, pending *models.PendingConfirmation) error

	// Find returns the pending confirmation only when id, tenant and user all
	// match and the record has not expired; otherwise ErrNotFound.
	Find(ctx context.Context, id, tenantID, userID string) (*models.PendingConfirmation, error)

	Delete(ctx context.Context, id string) error
}
