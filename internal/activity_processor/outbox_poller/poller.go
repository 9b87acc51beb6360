package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poketrade-exchange/internal/config"
	"github.com/poketrade-exchange/internal/domain/outbox"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Poller moves PENDING outbox messages to the relay. Each tick drains the
// outbox batch by batch until a batch comes back short or nothing in it
// could be relayed.
type Poller struct {
	outboxRepo  outbox.Repository
	relay       EventRelay
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

func NewPoller(cfg *config.OutboxConfig, outboxRepo outbox.Repository, relay EventRelay, logger *slog.Logger) *Poller {
	return &Poller{
		outboxRepo:  outboxRepo,
		relay:       relay,
		logger:      logger.With("component", "outbox_poller"),
		interval:    cfg.PollingInterval,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxRetryAttempts,
	}
}

// Start drains once right away and then on every tick until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.interval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxAttempts)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.drain(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) drain(ctx context.Context) {
	for ctx.Err() == nil {
		fetched, relayed, err := p.relayBatch(ctx)
		if err != nil {
			p.logger.Error("Outbox batch failed", "error", err)
			return
		}
		if fetched < p.batchSize || relayed == 0 {
			return
		}
	}
}

// relayBatch relays one batch and reports how many messages it fetched and
// how many reached the broker
func (p *Poller) relayBatch(ctx context.Context) (fetched, relayed int, err error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, 0, nil
	}
	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return len(messages), relayed, err
		}

		err := p.relay.Relay(ctx, msg)
		switch {
		case err == nil:
			relayed++
		case errors.Is(err, ErrUndeliverable):
			// the relay already parked it
		default:
			p.recordFailure(ctx, msg, err)
		}
	}
	return len(messages), relayed, nil
}

// recordFailure counts the attempt and parks the message once it has used
// up its retries
func (p *Poller) recordFailure(ctx context.Context, msg *outbox.Message, cause error) {
	log := p.logger.With("outbox_id", msg.ID, "event_id", msg.EventID.String())
	attempts := msg.Attempts + 1
	log.Warn("Failed to relay outbox message", "attempt", attempts, "error", cause)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		log.Error("Failed to record outbox attempt", "error", err)
		return
	}
	if attempts < p.maxAttempts {
		return
	}

	log.Error("Outbox message exhausted its retries, marking FAILED_TO_PUBLISH", "attempts", attempts)
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		log.Error("Failed to mark outbox message FAILED_TO_PUBLISH", "error", err)
	}
}
