package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poketrade-exchange/internal/domain/shared"
)

type RecordingServiceImpl struct {
	validator EventValidator
	recorder  ActivityRecorder
	logger    *slog.Logger
}

func NewRecordingService(validator EventValidator, recorder ActivityRecorder, logger *slog.Logger) RecordingService {
	return &RecordingServiceImpl{
		validator: validator,
		recorder:  recorder,
		logger:    logger,
	}
}

// RecordEvent validates the event and writes one activity entry per user and leg.
// Redelivered events are skipped once fully recorded.
func (s *RecordingServiceImpl) RecordEvent(ctx context.Context, event *shared.SettlementEvent) error {
	logger := s.logger.With("event_id", event.EventID.String(), "event_type", string(event.Type))
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	if err := s.validator.Validate(ctx, event); err != nil {
		logger.Warn("Rejected settlement event", "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	entries := s.recorder.Project(event)
	if len(entries) == 0 {
		logger.Warn("Settlement event produced no activity entries")
		return nil
	}

	done, err := s.validator.CheckIdempotency(ctx, event.EventID, len(entries))
	if err != nil {
		return err
	}
	if done {
		logger.Info("Settlement event already recorded, skipping")
		return nil
	}

	inserted, err := s.recorder.Record(ctx, entries)
	if err != nil {
		logger.Error("Failed to record activity", "inserted", inserted, "error", err)
		return fmt.Errorf("recording event %s failed: %w", event.EventID, err)
	}

	logger.Info("Recorded settlement activity", "entries", len(entries), "inserted", inserted)
	return nil
}
