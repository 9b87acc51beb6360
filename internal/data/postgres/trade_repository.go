package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/trade"
	"github.com/poketrade-exchange/internal/platform/persistence"
)

const (
	tradeColumns = `id, initiator_id, recipient_id, status, message, created_at, updated_at`
	offerColumns = `id, trade_id, user_id, card_id, quantity, created_at`
)

// TradeRepository implements the trade.Repository interface for PostgreSQL
type TradeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTradeRepository creates a new PostgreSQL trade repository
func NewTradeRepository(logger *slog.Logger, db *persistence.PostgresDB) trade.Repository {
	return &TradeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *TradeRepository) WithTx(tx pgx.Tx) trade.Repository {
	return &TradeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanTrade(row rowScanner, t *trade.Trade) error {
	return row.Scan(
		&t.ID,
		&t.InitiatorID,
		&t.RecipientID,
		&t.Status,
		&t.Message,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

// Create stores the trade row
func (r *TradeRepository) Create(ctx context.Context, t *trade.Trade) error {
	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.InitiatorID,
		t.RecipientID,
		t.Status,
		t.Message,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create trade", "id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to create trade: %w", err)
	}

	return nil
}

// CreateOffer stores one offer of a trade
func (r *TradeRepository) CreateOffer(ctx context.Context, o *trade.Offer) error {
	query := `
		INSERT INTO trade_offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, o.ID, o.TradeID, o.UserID, o.CardID, o.Quantity, o.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create trade offer", "trade_id", o.TradeID.String(), "error", err)
		return fmt.Errorf("failed to create trade offer: %w", err)
	}

	return nil
}

// GetByID retrieves a trade with its offers
func (r *TradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*trade.Trade, error) {
	return r.getOne(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id, "get trade")
}

// LockForUpdate locks the trade row so accept, reject and cancel serialize,
// then loads its offers.
func (r *TradeRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*trade.Trade, error) {
	return r.getOne(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1 FOR UPDATE`, id, "lock trade for update")
}

func (r *TradeRepository) getOne(ctx context.Context, query string, id uuid.UUID, op string) (*trade.Trade, error) {
	var t trade.Trade
	if err := scanTrade(r.querier.QueryRow(ctx, query, id), &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trade.ErrTradeNotFound{TradeID: id}
		}
		r.logger.Error("Failed to "+op, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	offers, err := r.listOffers(ctx, []uuid.UUID{t.ID})
	if err != nil {
		return nil, err
	}
	t.Offers = offers[t.ID]

	return &t, nil
}

// UpdateStatus persists the status and updated_at of a trade
func (r *TradeRepository) UpdateStatus(ctx context.Context, t *trade.Trade) error {
	query := `
		UPDATE trades
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, t.Status, t.UpdatedAt, t.ID)
	if err != nil {
		r.logger.Error("Failed to update trade status", "id", t.ID.String(), "status", string(t.Status), "error", err)
		return fmt.Errorf("failed to update trade status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return trade.ErrTradeNotFound{TradeID: t.ID}
	}

	return nil
}

// ListPendingForUser returns PENDING trades the user takes part in, newest first
func (r *TradeRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*trade.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE status = $1 AND (initiator_id = $2 OR recipient_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, trade.StatusPending, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list pending trades", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list pending trades: %w", err)
	}
	defer rows.Close()

	trades := []*trade.Trade{}
	var ids []uuid.UUID
	for rows.Next() {
		var t trade.Trade
		if err := scanTrade(rows, &t); err != nil {
			r.logger.Error("Failed to scan trade", "error", err)
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, &t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over trades", "error", err)
		return nil, fmt.Errorf("error iterating over trades: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return trades, nil
	}

	offers, err := r.listOffers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range trades {
		t.Offers = offers[t.ID]
	}

	return trades, nil
}

// CountPendingForUser counts PENDING trades the user takes part in
func (r *TradeRepository) CountPendingForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM trades
		WHERE status = $1 AND (initiator_id = $2 OR recipient_id = $2)
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, trade.StatusPending, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count pending trades", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count pending trades: %w", err)
	}
	return count, nil
}

func (r *TradeRepository) listOffers(ctx context.Context, tradeIDs []uuid.UUID) (map[uuid.UUID][]*trade.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM trade_offers
		WHERE trade_id = ANY($1)
		ORDER BY created_at ASC, id
	`

	rows, err := r.querier.Query(ctx, query, tradeIDs)
	if err != nil {
		r.logger.Error("Failed to list trade offers", "trades", len(tradeIDs), "error", err)
		return nil, fmt.Errorf("failed to list trade offers: %w", err)
	}
	defer rows.Close()

	offers := make(map[uuid.UUID][]*trade.Offer, len(tradeIDs))
	for rows.Next() {
		var o trade.Offer
		if err := rows.Scan(&o.ID, &o.TradeID, &o.UserID, &o.CardID, &o.Quantity, &o.CreatedAt); err != nil {
			r.logger.Error("Failed to scan trade offer", "error", err)
			return nil, fmt.Errorf("failed to scan trade offer: %w", err)
		}
		offers[o.TradeID] = append(offers[o.TradeID], &o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over trade offers", "error", err)
		return nil, fmt.Errorf("error iterating over trade offers: %w", err)
	}

	return offers, nil
}
