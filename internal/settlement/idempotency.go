package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/shared"
)

const keyReleaseTimeout = 5 * time.Second

// releaseKey drops a reservation on a context detached from the caller, which
// may already be done, and bounded so a slow store cannot hang the request.
func releaseKey(ctx context.Context, keys KeyStore, key string) error {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyReleaseTimeout)
	defer cancel()
	return keys.Release(releaseCtx, key)
}

// IdempotencyGuard turns client supplied idempotency keys into one-shot
// reservations so a retried request cannot settle twice.
type IdempotencyGuard struct {
	keys   KeyStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotencyGuard creates a guard remembering keys for ttl
func NewIdempotencyGuard(keys KeyStore, ttl time.Duration, logger *slog.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{keys: keys, ttl: ttl, logger: logger}
}

func idempotencyKey(scope string, userID uuid.UUID, key string) string {
	return fmt.Sprintf("idempotency:%s:%s:%s", scope, userID, key)
}

// Run executes fn once per (scope, user, key). A key already used returns
// ErrDuplicateRequest without calling fn. When fn fails the key is released
// so the client can retry. An empty key runs fn unguarded.
func (g *IdempotencyGuard) Run(ctx context.Context, scope string, userID uuid.UUID, key string, fn func() error) error {
	if key == "" || g == nil {
		return fn()
	}

	redisKey := idempotencyKey(scope, userID, key)
	ok, err := g.keys.Reserve(ctx, redisKey, g.ttl)
	if err != nil {
		return err
	}
	if !ok {
		g.logger.Info("Duplicate request rejected", "scope", scope, "user_id", userID.String(), "idempotency_key", key)
		return fmt.Errorf("%w: idempotency key %q", shared.ErrDuplicateRequest, key)
	}

	if err := fn(); err != nil {
		if relErr := releaseKey(ctx, g.keys, redisKey); relErr != nil {
			g.logger.Error("Failed to release idempotency key", "key", redisKey, "error", relErr)
		}
		return err
	}

	return nil
}
