package components

import (
	"log/slog"

	"github.com/poketrade-exchange/internal/activity_processor/service"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/config"
	"github.com/poketrade-exchange/internal/domain/activity"
)

// CreateRecordingService wires the recording service with its components and
// runs it on the worker pool. It falls back to the synchronous service when
// the pool cannot be created.
func CreateRecordingService(
	activityRepo activity.Repository,
	clk clock.Clock,
	logger *slog.Logger,
	cfg *config.Config,
) service.RecordingService {
	validator := NewEventValidator(activityRepo, logger)
	recorder := NewActivityRecorder(activityRepo, clk, logger)

	baseService := service.NewRecordingService(validator, recorder, logger)

	workerPoolService, err := service.NewWorkerPoolRecordingService(
		baseService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool recording service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
