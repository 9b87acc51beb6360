package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Header names attached to published messages
const (
	HeaderEventType = "event-type"
	HeaderDLQReason = "dlq-reason"
)

// MessagePublisher writes JSON encoded values to its topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}, headers ...kafka.Header) error
	Close() error
}

// DeadLetterPublisher parks messages that cannot be processed
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the part of *kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
