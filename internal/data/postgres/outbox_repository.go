package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/outbox"
	"github.com/poketrade-exchange/internal/domain/shared"
	"github.com/poketrade-exchange/internal/platform/persistence"
)

const (
	insertOutboxSQL = `
		INSERT INTO settlement_outbox (event_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	pendingOutboxSQL = `
		SELECT id, event_id, event_type, payload, status, attempts, created_at, last_attempt_at
		FROM settlement_outbox
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2`

	updateOutboxStatusSQL = `
		UPDATE settlement_outbox SET status = $1, last_attempt_at = $2 WHERE id = $3`

	incrementOutboxAttemptsSQL = `
		UPDATE settlement_outbox SET attempts = attempts + 1, last_attempt_at = $1 WHERE id = $2`
)

type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	now     func() time.Time
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{querier: db.Pool(), logger: logger, now: time.Now}
}

// WithTx binds the repository to a settlement transaction so the event
// commits or rolls back with it
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{querier: tx, logger: r.logger, now: r.now}
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	err := r.querier.QueryRow(ctx, insertOutboxSQL,
		message.EventID,
		message.EventType,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"event_id", message.EventID.String(),
			"event_type", string(message.EventType),
			"error", err)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	rows, err := r.querier.Query(ctx, pendingOutboxSQL, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*outbox.Message, error) {
		var m outbox.Message
		err := row.Scan(&m.ID, &m.EventID, &m.EventType, &m.Payload, &m.Status, &m.Attempts, &m.CreatedAt, &m.LastAttemptAt)
		return &m, err
	})
	if err != nil {
		r.logger.Error("Failed to read pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to read pending outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.touch(ctx, "update status", id, updateOutboxStatusSQL, status, r.now(), id)
}

// IncrementAttempts records a failed relay attempt
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.touch(ctx, "increment attempts", id, incrementOutboxAttemptsSQL, r.now(), id)
}

// touch runs a single-row update and maps zero affected rows to ErrMessageNotFound
func (r *OutboxRepository) touch(ctx context.Context, op string, id int64, sql string, args ...any) error {
	result, err := r.querier.Exec(ctx, sql, args...)
	if err != nil {
		r.logger.Error("Failed to "+op+" of outbox message", "id", id, "error", err)
		return fmt.Errorf("failed to %s of outbox message %d: %w", op, id, err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}
