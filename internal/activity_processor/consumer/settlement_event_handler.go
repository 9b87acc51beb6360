package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poketrade-exchange/internal/activity_processor/service"
	"github.com/poketrade-exchange/internal/domain/shared"
	"github.com/poketrade-exchange/internal/platform/messaging/producers"
)

// SettlementEventHandler records activity for settlement events read from Kafka
type SettlementEventHandler struct {
	recordingService service.RecordingService
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

func NewSettlementEventHandler(
	logger *slog.Logger,
	recordingService service.RecordingService,
	producer producers.DeadLetterPublisher,
) *SettlementEventHandler {
	return &SettlementEventHandler{
		recordingService: recordingService,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage returns nil when the offset may be committed: the event was
// recorded or parked on the dead-letter topic.
func (h *SettlementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.SettlementEvent
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("Failed to unmarshal settlement event", "message_key", string(key), "error", err)
		return h.deadLetter(ctx, key, value, fmt.Sprintf("unparseable settlement event: %s", err), err)
	}

	logger := h.logger.With("event_id", event.EventID.String())
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	err := h.recordingService.RecordEvent(ctx, &event)
	if errors.Is(err, service.ErrInvalidEvent) {
		return h.deadLetter(ctx, key, value, err.Error(), err)
	}
	if err != nil {
		logger.Error("Failed to record settlement event", "error", err)
		return fmt.Errorf("recording event %s failed: %w", event.EventID, err)
	}

	return nil
}

func (h *SettlementEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("no dead-letter topic for message %q: %w", key, cause)
	}

	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"message_key", string(key),
			"dlq_error", err,
			"original_error", cause,
		)
		return fmt.Errorf("dead-lettering message %q failed: %w", key, cause)
	}
	return nil
}
