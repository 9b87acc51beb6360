package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/config"
	"github.com/segmentio/kafka-go"
)

// ErrDLQDisabled is returned when no dead-letter topic is configured
var ErrDLQDisabled = errors.New("DLQ producer not initialized")

// DeadLetter is the envelope written to the dead-letter topic. A payload that
// is valid JSON is embedded as is, anything else is kept as text.
type DeadLetter struct {
	OriginalKey   string          `json:"original_key"`
	OriginalValue json.RawMessage `json:"original_value,omitempty"`
	OriginalText  string          `json:"original_text,omitempty"`
	Reason        string          `json:"dlq_reason"`
	FailedAt      time.Time       `json:"failed_at"`
}

func newDeadLetter(key string, value []byte, reason string, at time.Time) DeadLetter {
	letter := DeadLetter{OriginalKey: key, Reason: reason, FailedAt: at.UTC()}
	if json.Valid(value) {
		letter.OriginalValue = value
	} else {
		letter.OriginalText = string(value)
	}
	return letter
}

type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	clock    clock.Clock
	dlqTopic string
}

// NewDLQProducer returns a nil producer when cfg.DLQTopic is empty (DLQ disabled).
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, dead-lettering disabled")
		return nil, nil
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	return &DLQProducer{
		logger:   logger,
		writer:   newTopicWriter(cfg, cfg.DLQTopic, &kafka.LeastBytes{}),
		clock:    clock.NewSystem(),
		dlqTopic: cfg.DLQTopic,
	}, nil
}

// PublishToDLQ parks a message the activity processor cannot use
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	value, err := json.Marshal(newDeadLetter(key, originalMessageValue, reason, p.clock.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: HeaderDLQReason, Value: []byte(reason)}},
	})
	if err != nil {
		p.logger.Error("Failed to publish message to DLQ", "topic", p.dlqTopic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Warn("Published message to DLQ", "topic", p.dlqTopic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
