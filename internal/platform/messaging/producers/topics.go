package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/poketrade-exchange/internal/config"
	"github.com/segmentio/kafka-go"
)

// topicAdmin is the subset of *kafka.Conn used to manage topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// newTopicWriter returns a synchronous writer that waits for every in-sync replica
func newTopicWriter(cfg *config.KafkaConfig, topic string, balancer kafka.Balancer) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     balancer,
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}
}

var (
	partitionReadAttempts = 5
	partitionReadBackoff  = 2 * time.Second
)

// ensureTopic creates the topic unless its partitions can be read. Partition
// reads are retried because a freshly started broker reports transient errors.
func ensureTopic(admin topicAdmin, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	var (
		partitions []kafka.Partition
		err        error
	)

	for attempt := 1; attempt <= partitionReadAttempts; attempt++ {
		partitions, err = admin.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topic, "partitions", len(partitions))
			return nil
		}
		if err == nil {
			break
		}
		log.Warn("Failed to read topic partitions, retrying",
			"topic", topic,
			"attempt", attempt,
			"error", err)
		if attempt < partitionReadAttempts {
			time.Sleep(partitionReadBackoff)
		}
	}

	cfg := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     max(numPartitions, 1),
		ReplicationFactor: max(replicationFactor, 1),
	}

	log.Info("Creating Kafka topic",
		"topic", topic,
		"partitions", cfg.NumPartitions,
		"replication_factor", cfg.ReplicationFactor,
		"last_read_error", err)

	if err := admin.CreateTopics(cfg); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	log.Info("Created Kafka topic", "topic", topic)
	return nil
}

// dialAndEnsureTopic connects to the broker and makes sure topic exists
func dialAndEnsureTopic(brokers, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	conn, err := kafka.Dial("tcp", brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return ensureTopic(conn, topic, numPartitions, replicationFactor, log)
}
