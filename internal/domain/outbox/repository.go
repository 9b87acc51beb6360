package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Repository persists settlement events awaiting relay. Settlements write
// through WithTx; the relay reads and updates outside any settlement.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	// GetPending returns up to limit PENDING messages, oldest first
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound is returned when an update matches no row
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d not found", e.ID)
}

func (e ErrMessageNotFound) Is(target error) bool {
	return target == shared.ErrNotFound
}
