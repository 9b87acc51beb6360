package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Repository is the storage side of the inventory ledger
type Repository interface {
	// GetQuantity returns 0 when the user never held the card.
	GetQuantity(ctx context.Context, userID, cardID uuid.UUID) (int, error)
	// LockQuantity reads the quantity with a row lock held until the transaction ends.
	LockQuantity(ctx context.Context, userID, cardID uuid.UUID) (int, error)
	// Increment creates the entry or adds to it and returns the new quantity.
	Increment(ctx context.Context, userID, cardID uuid.UUID, amount int, at time.Time) (int, error)
	// Decrement subtracts only when enough is held, else ErrInsufficientQuantity.
	Decrement(ctx context.Context, userID, cardID uuid.UUID, amount int, at time.Time) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Holding, error)
	TotalByCard(ctx context.Context, cardID uuid.UUID) (int, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrInsufficientQuantity reports a debit or reservation larger than the holding
type ErrInsufficientQuantity struct {
	UserID    uuid.UUID
	CardID    uuid.UUID
	Requested int
	Available int
}

func (e ErrInsufficientQuantity) Error() string {
	return fmt.Sprintf("user %s has %d of card %s available, %d requested",
		e.UserID, e.Available, e.CardID, e.Requested)
}

func (e ErrInsufficientQuantity) Is(target error) bool {
	if target == shared.ErrInsufficientQuantity {
		return true
	}
	t, ok := target.(ErrInsufficientQuantity)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil && t.CardID == uuid.Nil {
		return true
	}
	return t.UserID == e.UserID && t.CardID == e.CardID
}
