package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/poketrade-exchange/internal/config"
	"github.com/segmentio/kafka-go"
)

// SettlementEventProducer publishes settlement events to the settlement topic.
// Writes are synchronous so the outbox relay only marks a message processed
// once the broker acknowledged it.
type SettlementEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewSettlementEventProducer creates the producer and ensures the topic exists
func NewSettlementEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SettlementEventProducer, error) {
	if cfg.SettlementTopic == "" {
		return nil, fmt.Errorf("kafka settlement topic is not configured")
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.SettlementTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure settlement topic %s exists: %w", cfg.SettlementTopic, err)
	}

	return &SettlementEventProducer{
		logger: logger,
		// same event id, same partition
		writer: newTopicWriter(cfg, cfg.SettlementTopic, &kafka.Hash{}),
		topic:  cfg.SettlementTopic,
	}, nil
}

// Publish marshals value to JSON and writes it under key
func (p *SettlementEventProducer) Publish(ctx context.Context, key string, value interface{}, headers ...kafka.Header) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   jsonValue,
		Headers: headers,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish settlement event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish settlement event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published settlement event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *SettlementEventProducer) Close() error {
	p.logger.Info("Closing settlement event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
