package trade

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Repository manages trades and their offers
type Repository interface {
	// Create stores the trade row only; offers go through CreateOffer.
	Create(ctx context.Context, t *Trade) error
	CreateOffer(ctx context.Context, o *Offer) error
	// GetByID returns the trade with its offers.
	GetByID(ctx context.Context, id uuid.UUID) (*Trade, error)
	// LockForUpdate locks the trade row and returns it with its offers.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Trade, error)
	UpdateStatus(ctx context.Context, t *Trade) error
	// ListPendingForUser returns PENDING trades where the user is a party, with offers.
	ListPendingForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Trade, error)
	CountPendingForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTradeNotFound indicates a missing trade
type ErrTradeNotFound struct {
	TradeID uuid.UUID
}

func (e ErrTradeNotFound) Error() string {
	return "trade not found: " + e.TradeID.String()
}

func (e ErrTradeNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrTradeNotFound)
	return ok && (t.TradeID == uuid.Nil || t.TradeID == e.TradeID)
}

// ErrTradeNotPending is returned for any change to a trade in a terminal state
type ErrTradeNotPending struct {
	TradeID uuid.UUID
	Status  Status
}

func (e ErrTradeNotPending) Error() string {
	return fmt.Sprintf("trade %s is %s", e.TradeID, e.Status)
}

func (e ErrTradeNotPending) Is(target error) bool {
	return target == shared.ErrInvalidState
}

// ErrNotPermitted is returned when the actor's role does not allow the action
type ErrNotPermitted struct {
	TradeID uuid.UUID
	ActorID uuid.UUID
	Action  string
}

func (e ErrNotPermitted) Error() string {
	return fmt.Sprintf("user %s may not %s trade %s", e.ActorID, e.Action, e.TradeID)
}

func (e ErrNotPermitted) Is(target error) bool {
	return target == shared.ErrUnauthorized
}
