package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/outbox"
	"github.com/poketrade-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

func newEvent(eventType shared.EventType, referenceID uuid.UUID, correlationID string, unitPrice *decimal.Decimal, legs []shared.Leg, now time.Time) *shared.SettlementEvent {
	return &shared.SettlementEvent{
		EventID:       uuid.New(),
		Type:          eventType,
		ReferenceID:   referenceID,
		CorrelationID: correlationID,
		UnitPrice:     unitPrice,
		Legs:          legs,
		OccurredAt:    now,
	}
}

// writeEvent stores the event in the outbox. repo must be bound to the
// settlement transaction so the event commits or rolls back with it.
func writeEvent(ctx context.Context, repo outbox.Repository, event *shared.SettlementEvent, logger *slog.Logger) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid settlement event: %w", err)
	}

	message, err := outbox.NewMessage(event)
	if err != nil {
		logger.Error("Failed to marshal settlement event",
			"event_id", event.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to create outbox message payload for event %s: %w", event.EventID, err)
	}

	if err := repo.Create(ctx, message); err != nil {
		return fmt.Errorf("failed to create outbox message for event %s: %w", event.EventID, err)
	}

	logger.Debug("Outbox message created",
		"event_id", event.EventID.String(),
		"event_type", string(event.Type),
		"outbox_id", message.ID)
	return nil
}
