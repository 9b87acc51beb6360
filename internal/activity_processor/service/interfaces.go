package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/activity"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// ErrInvalidEvent marks events that can never be recorded. Callers route
// them to the dead-letter topic instead of retrying.
var ErrInvalidEvent = errors.New("invalid settlement event")

// RecordingService records the activity history of settlement events
type RecordingService interface {
	RecordEvent(ctx context.Context, event *shared.SettlementEvent) error
}

// EventValidator checks events before they are recorded
type EventValidator interface {
	Validate(ctx context.Context, event *shared.SettlementEvent) error
	// CheckIdempotency reports whether all expected entries of the event are already recorded
	CheckIdempotency(ctx context.Context, eventID uuid.UUID, expectedEntries int) (bool, error)
}

// ActivityRecorder projects events into activity entries and stores them
type ActivityRecorder interface {
	Project(event *shared.SettlementEvent) []*activity.Entry
	Record(ctx context.Context, entries []*activity.Entry) (int, error)
}
