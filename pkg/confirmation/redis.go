package confirmation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

// RedisStore persists pending confirmations in redis with a server-side TTL,
// shared across orchestrator instances. The stored expiry is still verified at
// read time so a clock-skewed redis server cannot extend a confirmation's life.
type RedisStore struct {
	client redis.UniversalClient

	now func() time.Time
}

// NewRedisStore creates a confirmation store over the given redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		now:    time.Now,
	}
}

func confirmationKey(id string) string {
	return "chatflow:confirmation:" + id
}

// Create stores the confirmation with a TTL matching its expiry.
func (s *RedisStore) Create(ctx context.Context, pending *models.PendingConfirmation) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending confirmation: %w", err)
	}

	ttl := pending.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("pending confirmation %s already expired", pending.ID)
	}

	err = s.client.Set(ctx, confirmationKey(pending.ID), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store pending confirmation: %w", err)
	}

	return nil
}

// Find returns the confirmation when id, tenant and user match and it has not expired.
func (s *RedisStore) Find(ctx context.Context, id, tenantID, userID string) (*models.PendingConfirmation, error) {
	data, err := s.client.Get(ctx, confirmationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load pending confirmation: %w", err)
	}

	var pending models.PendingConfirmation

	err = json.Unmarshal(data, &pending)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pending confirmation: %w", err)
	}

	if pending.Expired(s.now()) {
		return nil, ErrNotFound
	}

	if pending.TenantID != tenantID || pending.UserID != userID {
		return nil, ErrNotFound
	}

	return &pending, nil
}

// Delete removes the confirmation. Deleting an absent id is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	err := s.client.Del(ctx, confirmationKey(id)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete pending confirmation: %w", err)
	}

	return nil
}
