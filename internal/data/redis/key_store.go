// Package redis keeps short-lived settlement keys in Redis: request
// idempotency keys and the once-per-day reward gate.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KeyStore reserves keys with SETNX so only the first caller wins
type KeyStore struct {
	client *goredis.Client
	logger *slog.Logger
}

// NewKeyStore creates a key store backed by client
func NewKeyStore(logger *slog.Logger, client *goredis.Client) *KeyStore {
	return &KeyStore{
		client: client,
		logger: logger,
	}
}

// Reserve claims key for ttl. It returns false when the key is already held.
func (s *KeyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		s.logger.Error("Failed to reserve key", "key", key, "error", err)
		return false, fmt.Errorf("failed to reserve key: %w", err)
	}

	return ok, nil
}

// Release drops a reserved key so the operation can be retried
func (s *KeyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Error("Failed to release key", "key", key, "error", err)
		return fmt.Errorf("failed to release key: %w", err)
	}

	return nil
}
