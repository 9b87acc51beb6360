// Package config provides configuration structures and validation for the card exchange.
// Values come from an optional .env file overlaid by environment variables, and every
// subsystem (HTTP, PostgreSQL, MongoDB, Kafka, Redis, catalog client) is validated at startup.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete application configuration for both binaries.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Catalog     CatalogConfig
	Market      MarketConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig contains Kafka configuration for settlement events
type KafkaConfig struct {
	Brokers           string
	SettlementTopic   string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration used for idempotency keys and reward gates
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration // How long a settlement idempotency key is remembered
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig sizes the activity processor's goroutine pool
type WorkerPoolConfig struct {
	Size int
}

// CatalogConfig configures the external card catalog client
type CatalogConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	MaxPage  int // Highest page a random card is drawn from
	PageSize int
}

// MarketConfig holds marketplace rules
type MarketConfig struct {
	// ReservationHold makes active listings count against the seller's
	// available quantity when new listings or trade offers are created.
	ReservationHold bool
	MaxPerPage      int
}

// problems accumulates every violated rule so startup reports them together
type problems []string

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

func (p *problems) required(key, value string) {
	p.check(value != "", "%s is required", key)
}

func (p *problems) positive(key string, value int64) {
	p.check(value > 0, "%s must be greater than 0", key)
}

func (p *problems) positiveDuration(key string, value time.Duration) {
	p.check(value > 0, "%s must be greater than 0", key)
}

func (s ServerConfig) validate(p *problems) {
	p.positive("SERVER_PORT", int64(s.Port))
	p.positiveDuration("SERVER_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	p.positiveDuration("SERVER_READ_TIMEOUT", s.ReadTimeout)
	p.positiveDuration("SERVER_WRITE_TIMEOUT", s.WriteTimeout)
	p.positiveDuration("SERVER_IDLE_TIMEOUT", s.IdleTimeout)
}

func (k KafkaConfig) validate(p *problems) {
	p.required("KAFKA_BROKERS", k.Brokers)
	p.required("KAFKA_SETTLEMENT_TOPIC", k.SettlementTopic)
	p.required("KAFKA_CONSUMER_GROUP", k.ConsumerGroup)
	p.required("KAFKA_DLQ_TOPIC", k.DLQTopic)
	p.check(k.DLQTopic == "" || k.DLQTopic != k.SettlementTopic,
		"KAFKA_DLQ_TOPIC must differ from KAFKA_SETTLEMENT_TOPIC")
	p.positive("KAFKA_CONSUMER_MIN_BYTES", int64(k.MinBytes))
	p.positive("KAFKA_CONSUMER_MAX_BYTES", int64(k.MaxBytes))
	p.check(k.MaxBytes <= 0 || k.MinBytes <= k.MaxBytes,
		"KAFKA_CONSUMER_MIN_BYTES must not exceed KAFKA_CONSUMER_MAX_BYTES")
	p.positiveDuration("KAFKA_CONSUMER_MAX_WAIT", k.MaxWait)
}

func (pg PostgresConfig) validate(p *problems) {
	p.required("POSTGRES_URL", pg.URL)
	p.positive("POSTGRES_MAX_CONNS", int64(pg.MaxConns))
	p.positive("POSTGRES_MIN_CONNS", int64(pg.MinConns))
	p.positiveDuration("POSTGRES_MAX_CONN_LIFETIME", pg.ConnMaxLifetime)
	p.positiveDuration("POSTGRES_MAX_CONN_IDLE_TIME", pg.ConnMaxIdleTime)
}

func (m MongoDBConfig) validate(p *problems) {
	p.required("MONGO_URI", m.URI)
	p.required("MONGO_DATABASE", m.Database)
	p.positiveDuration("MONGO_TIMEOUT", m.Timeout)
	p.check(m.MaxPoolSize > 0, "MONGO_MAX_POOL_SIZE must be greater than 0")
	p.check(m.MinPoolSize > 0, "MONGO_MIN_POOL_SIZE must be greater than 0")
	p.positiveDuration("MONGO_MAX_CONN_IDLE_TIME", m.MaxConnIdleTime)
}

func (r RedisConfig) validate(p *problems) {
	p.required("REDIS_ADDR", r.Addr)
	p.check(r.DB >= 0, "REDIS_DB must not be negative")
	p.positiveDuration("REDIS_IDEMPOTENCY_TTL", r.IdempotencyTTL)
}

func (c CatalogConfig) validate(p *problems) {
	p.required("CATALOG_BASE_URL", c.BaseURL)
	p.positiveDuration("CATALOG_TIMEOUT", c.Timeout)
	p.positive("CATALOG_MAX_PAGE", int64(c.MaxPage))
	p.positive("CATALOG_PAGE_SIZE", int64(c.PageSize))
}

// validate checks every section and reports all violations at once
func (c *Config) validate() error {
	var p problems

	c.Server.validate(&p)
	c.Kafka.validate(&p)
	c.Postgres.validate(&p)
	c.MongoDB.validate(&p)
	c.Redis.validate(&p)
	c.Catalog.validate(&p)

	p.positiveDuration("OUTBOX_POLLING_INTERVAL", c.Outbox.PollingInterval)
	p.positive("OUTBOX_BATCH_SIZE", int64(c.Outbox.BatchSize))
	p.positive("OUTBOX_MAX_RETRY_ATTEMPTS", int64(c.Outbox.MaxRetryAttempts))
	p.positive("WORKER_POOL_SIZE", int64(c.WorkerPool.Size))
	p.positive("PAGINATION_MAX_PER_PAGE", int64(c.Market.MaxPerPage))

	if len(p) > 0 {
		return errors.New(strings.Join(p, ", "))
	}
	return nil
}
