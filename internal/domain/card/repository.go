package card

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Repository manages card persistence
type Repository interface {
	// Upsert inserts the card or refreshes the metadata of the card with the
	// same (name, set, number) and returns the stored card. The returned id is
	// the existing one when the card was already known.
	Upsert(ctx context.Context, c *Card) (*Card, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Card, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Card, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrCardNotFound indicates a missing card
type ErrCardNotFound struct {
	CardID uuid.UUID
}

func (e ErrCardNotFound) Error() string {
	return "card not found: " + e.CardID.String()
}

func (e ErrCardNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrCardNotFound)
	if !ok {
		return false
	}
	return t.CardID == uuid.Nil || t.CardID == e.CardID
}
