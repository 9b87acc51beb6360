// Package inventory models per-user card holdings. One entry exists per
// (user, card) pair and its quantity never drops below zero.
package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Entry is the quantity of one card held by one user. Entries driven to
// zero are kept and hidden from collection views.
type Entry struct {
	UserID     uuid.UUID `json:"user_id"`
	CardID     uuid.UUID `json:"card_id"`
	Quantity   int       `json:"quantity"`
	AcquiredAt time.Time `json:"acquired_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Holding is an entry joined with its card metadata for collection views.
type Holding struct {
	Entry
	Card card.Card `json:"card"`
}

// ValidateAmount rejects non-positive ledger amounts.
func ValidateAmount(amount int) error {
	if amount < 1 {
		return fmt.Errorf("%w: got %d", shared.ErrInvalidQuantity, amount)
	}
	return nil
}
