package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/poketrade-exchange/internal/config"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer delivers messages of one topic to a handler
type Consumer interface {
	Subscribe(ctx context.Context, topic string, groupID string, handler MessageHandler) error
	Close() error
}

// KafkaReader wraps kafka.Reader methods for testing
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConsumer struct {
	reader       KafkaReader
	logger       *slog.Logger
	fetchBackoff time.Duration
	done         chan struct{}
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = kafka.FirstOffset
	}

	return newKafkaConsumer(logger, kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       cfg.SettlementTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	}))
}

func newKafkaConsumer(logger *slog.Logger, reader KafkaReader) *KafkaConsumer {
	return &KafkaConsumer{
		reader:       reader,
		logger:       logger,
		fetchBackoff: time.Second,
		done:         make(chan struct{}),
	}
}

// Subscribe starts consuming in the background and returns immediately. A
// message's offset is committed only after handler succeeds, so a failed
// message is redelivered after a restart or rebalance.
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, groupID string, handler MessageHandler) error {
	log := c.logger.With("topic", topic, "group_id", groupID)
	log.Info("Subscribed to Kafka topic")

	go func() {
		defer close(c.done)
		c.consume(ctx, log, handler)
		log.Info("Context canceled, stopping consumer")
	}()
	return nil
}

func (c *KafkaConsumer) consume(ctx context.Context, log *slog.Logger, handler MessageHandler) {
	for ctx.Err() == nil {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to fetch message from Kafka", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.fetchBackoff):
			}
			continue
		}
		c.process(ctx, log, msg, handler)
	}
}

func (c *KafkaConsumer) process(ctx context.Context, log *slog.Logger, msg kafka.Message, handler MessageHandler) {
	log = log.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
	log.Debug("Received message from Kafka")

	if err := handler(ctx, msg.Key, msg.Value); err != nil {
		log.Error("Failed to process message, will not commit offset", "error", err)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message after successful processing", "error", err)
	}
}

// Done is closed once the consume loop has exited
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
