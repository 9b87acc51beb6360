package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/activity_processor/service"
	"github.com/poketrade-exchange/internal/domain/activity"
	"github.com/poketrade-exchange/internal/domain/shared"
)

type EventValidatorImpl struct {
	activityRepo activity.Repository
	logger       *slog.Logger
}

func NewEventValidator(activityRepo activity.Repository, logger *slog.Logger) service.EventValidator {
	return &EventValidatorImpl{
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// Validate checks the structural invariants of the event
func (v *EventValidatorImpl) Validate(_ context.Context, event *shared.SettlementEvent) error {
	if event.OccurredAt.IsZero() {
		return fmt.Errorf("%w: event %s has no occurrence time", shared.ErrInvalidInput, event.EventID)
	}
	return event.Validate()
}

// CheckIdempotency reports whether every entry of the event is already stored.
// A partially recorded event is recorded again; duplicate entries are skipped by the store.
func (v *EventValidatorImpl) CheckIdempotency(ctx context.Context, eventID uuid.UUID, expectedEntries int) (bool, error) {
	recorded, err := v.activityRepo.CountForEvent(ctx, eventID)
	if err != nil {
		v.logger.Error("Failed to check activity for idempotency", "event_id", eventID.String(), "error", err)
		return false, fmt.Errorf("idempotency check failed for event %s: %w", eventID, err)
	}

	if recorded > 0 && recorded < int64(expectedEntries) {
		v.logger.Warn("Settlement event partially recorded, completing it",
			"event_id", eventID.String(),
			"recorded", recorded,
			"expected", expectedEntries)
	}
	return recorded >= int64(expectedEntries), nil
}
