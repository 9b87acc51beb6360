package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poketrade-exchange/internal/domain/outbox"
	"github.com/poketrade-exchange/internal/domain/shared"
	"github.com/poketrade-exchange/internal/platform/messaging/producers"
	"github.com/segmentio/kafka-go"
)

// ErrUndeliverable marks outbox messages that can never be published
var ErrUndeliverable = errors.New("undeliverable outbox message")

// EventRelay delivers one outbox message to the message bus
type EventRelay interface {
	Relay(ctx context.Context, message *outbox.Message) error
}

// KafkaRelay publishes outbox messages to the settlement topic
type KafkaRelay struct {
	outboxRepo outbox.Repository
	publisher  producers.MessagePublisher
	logger     *slog.Logger
}

func NewKafkaRelay(outboxRepo outbox.Repository, publisher producers.MessagePublisher, logger *slog.Logger) EventRelay {
	return &KafkaRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Relay publishes the message keyed by event id and marks it PROCESSED.
// A payload that does not decode is marked FAILED_TO_PUBLISH at once.
func (r *KafkaRelay) Relay(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err == nil {
		err = event.Validate()
	}
	if err != nil {
		r.logger.Error("Outbox payload is not a valid settlement event",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err)
		if updateErr := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			r.logger.Error("Failed to mark outbox message FAILED_TO_PUBLISH", "outbox_id", message.ID, "error", updateErr)
		}
		return fmt.Errorf("%w %d: %v", ErrUndeliverable, message.ID, err)
	}

	logger := r.logger
	if event.CorrelationID != "" {
		logger = r.logger.With("correlation_id", event.CorrelationID)
	}

	header := kafka.Header{Key: producers.HeaderEventType, Value: []byte(message.EventType)}
	if err := r.publisher.Publish(ctx, message.EventID.String(), message.Payload, header); err != nil {
		return fmt.Errorf("failed to publish outbox message %d: %w", message.ID, err)
	}

	if err := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		// Already published; a republish is deduplicated by the consumer.
		logger.Error("Failed to mark outbox message PROCESSED", "outbox_id", message.ID, "error", err)
		return fmt.Errorf("event %s published, but failed to mark outbox %d as PROCESSED: %w", message.EventID, message.ID, err)
	}

	logger.Info("Relayed settlement event",
		"outbox_id", message.ID,
		"event_id", message.EventID.String(),
		"event_type", string(message.EventType))
	return nil
}
