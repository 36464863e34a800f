package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the redis instance named by the URL. An empty
// URL means redis-backed components fall back to their in-memory variants.
func NewRedisClient(redisURL string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return redis.NewClient(opts), nil
}
