package shared

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Leg is one ownership movement inside a settlement. FromUserID is nil when
// cards enter circulation (rewards).
type Leg struct {
	FromUserID *uuid.UUID `json:"from_user_id,omitempty"`
	ToUserID   uuid.UUID  `json:"to_user_id"`
	CardID     uuid.UUID  `json:"card_id"`
	Quantity   int        `json:"quantity"`
}

// SettlementEvent is written to the outbox in the same transaction as the
// ledger mutation it describes and published to Kafka afterwards.
type SettlementEvent struct {
	EventID       uuid.UUID        `json:"event_id"`
	Type          EventType        `json:"type"`
	ReferenceID   uuid.UUID        `json:"reference_id"` // purchase, trade or card id
	CorrelationID string           `json:"correlation_id,omitempty"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	Legs          []Leg            `json:"legs"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// Validate checks the structural invariants every consumer relies on.
func (e *SettlementEvent) Validate() error {
	if e.EventID == uuid.Nil {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, e.Type)
	}
	if len(e.Legs) == 0 {
		return fmt.Errorf("%w: event %s has no legs", ErrInvalidInput, e.EventID)
	}
	for i, leg := range e.Legs {
		if leg.Quantity < 1 {
			return fmt.Errorf("%w: leg %d quantity %d", ErrInvalidQuantity, i, leg.Quantity)
		}
		if leg.ToUserID == uuid.Nil || leg.CardID == uuid.Nil {
			return fmt.Errorf("%w: leg %d is missing user or card", ErrInvalidInput, i)
		}
		if e.Type != EventTypeRewardGranted && leg.FromUserID == nil {
			return fmt.Errorf("%w: leg %d of %s has no sender", ErrInvalidInput, i, e.Type)
		}
	}
	return nil
}
