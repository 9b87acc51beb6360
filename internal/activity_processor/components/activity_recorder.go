package components

import (
	"context"
	"log/slog"

	"github.com/poketrade-exchange/internal/activity_processor/service"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/domain/activity"
	"github.com/poketrade-exchange/internal/domain/shared"
)

type ActivityRecorderImpl struct {
	activityRepo activity.Repository
	clock        clock.Clock
	logger       *slog.Logger
}

func NewActivityRecorder(activityRepo activity.Repository, clk clock.Clock, logger *slog.Logger) service.ActivityRecorder {
	return &ActivityRecorderImpl{
		activityRepo: activityRepo,
		clock:        clk,
		logger:       logger,
	}
}

// Project expands the event into per-user entries stamped with the recording time
func (r *ActivityRecorderImpl) Project(event *shared.SettlementEvent) []*activity.Entry {
	return activity.FromEvent(event, r.clock.Now())
}

func (r *ActivityRecorderImpl) Record(ctx context.Context, entries []*activity.Entry) (int, error) {
	inserted, err := r.activityRepo.Record(ctx, entries)
	if err != nil {
		return inserted, err
	}
	if skipped := len(entries) - inserted; skipped > 0 {
		r.logger.Debug("Skipped already recorded activity entries", "skipped", skipped)
	}
	return inserted, nil
}
