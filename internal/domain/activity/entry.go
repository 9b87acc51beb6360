// Package activity holds the per-user history of settled card movements,
// projected from settlement events into MongoDB.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Kind describes the entry from the user's point of view
type Kind string

const (
	KindPurchase      Kind = "PURCHASE"
	KindSale          Kind = "SALE"
	KindTradeSent     Kind = "TRADE_SENT"
	KindTradeReceived Kind = "TRADE_RECEIVED"
	KindReward        Kind = "REWARD"
)

// Entry is one line of a user's activity history. (EventID, UserID, Leg) is unique.
type Entry struct {
	EventID        uuid.UUID  `json:"event_id" bson:"event_id"`
	UserID         uuid.UUID  `json:"user_id" bson:"user_id"`
	Leg            int        `json:"leg" bson:"leg"`
	Kind           Kind       `json:"kind" bson:"kind"`
	CardID         uuid.UUID  `json:"card_id" bson:"card_id"`
	Quantity       int        `json:"quantity" bson:"quantity"`
	CounterpartyID *uuid.UUID `json:"counterparty_id,omitempty" bson:"counterparty_id,omitempty"`
	ReferenceID    uuid.UUID  `json:"reference_id" bson:"reference_id"`
	UnitPrice      string     `json:"unit_price,omitempty" bson:"unit_price,omitempty"` // decimal string
	CorrelationID  string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at" bson:"occurred_at"`
	RecordedAt     time.Time  `json:"recorded_at" bson:"recorded_at"`
}

// FromEvent expands a settlement event into the entries of every user it touches.
func FromEvent(event *shared.SettlementEvent, recordedAt time.Time) []*Entry {
	var unitPrice string
	if event.UnitPrice != nil {
		unitPrice = event.UnitPrice.String()
	}

	base := func(leg int, l shared.Leg) Entry {
		return Entry{
			EventID:       event.EventID,
			Leg:           leg,
			CardID:        l.CardID,
			Quantity:      l.Quantity,
			ReferenceID:   event.ReferenceID,
			UnitPrice:     unitPrice,
			CorrelationID: event.CorrelationID,
			OccurredAt:    event.OccurredAt,
			RecordedAt:    recordedAt,
		}
	}

	var entries []*Entry
	for i, l := range event.Legs {
		switch event.Type {
		case shared.EventTypeRewardGranted:
			e := base(i, l)
			e.UserID = l.ToUserID
			e.Kind = KindReward
			entries = append(entries, &e)
		case shared.EventTypePurchaseSettled, shared.EventTypeTradeAccepted:
			if l.FromUserID == nil {
				continue
			}
			sent, received := KindSale, KindPurchase
			if event.Type == shared.EventTypeTradeAccepted {
				sent, received = KindTradeSent, KindTradeReceived
			}
			to := l.ToUserID

			out := base(i, l)
			out.UserID = *l.FromUserID
			out.Kind = sent
			out.CounterpartyID = &to

			in := base(i, l)
			in.UserID = l.ToUserID
			in.Kind = received
			in.CounterpartyID = l.FromUserID

			entries = append(entries, &out, &in)
		}
	}
	return entries
}

// Repository stores activity entries
type Repository interface {
	// Record inserts the entries, ignoring ones already recorded.
	Record(ctx context.Context, entries []*Entry) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountForEvent(ctx context.Context, eventID uuid.UUID) (int64, error)
}
