package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/platform/persistence"
)

// InventoryRepository implements the inventory.Repository interface for PostgreSQL
type InventoryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewInventoryRepository creates a new PostgreSQL inventory repository
func NewInventoryRepository(logger *slog.Logger, db *persistence.PostgresDB) inventory.Repository {
	return &InventoryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *InventoryRepository) WithTx(tx pgx.Tx) inventory.Repository {
	return &InventoryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetQuantity returns the held quantity, 0 when there is no entry
func (r *InventoryRepository) GetQuantity(ctx context.Context, userID, cardID uuid.UUID) (int, error) {
	return r.readQuantity(ctx, `
		SELECT quantity
		FROM inventory_entries
		WHERE user_id = $1 AND card_id = $2
	`, userID, cardID)
}

// LockQuantity reads the held quantity and locks the entry until the
// transaction ends. Must be called on a repository bound with WithTx.
func (r *InventoryRepository) LockQuantity(ctx context.Context, userID, cardID uuid.UUID) (int, error) {
	return r.readQuantity(ctx, `
		SELECT quantity
		FROM inventory_entries
		WHERE user_id = $1 AND card_id = $2
		FOR UPDATE
	`, userID, cardID)
}

func (r *InventoryRepository) readQuantity(ctx context.Context, query string, userID, cardID uuid.UUID) (int, error) {
	var quantity int
	err := r.querier.QueryRow(ctx, query, userID, cardID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		r.logger.Error("Failed to read inventory quantity", "user_id", userID.String(), "card_id", cardID.String(), "error", err)
		return 0, fmt.Errorf("failed to read inventory quantity: %w", err)
	}
	return quantity, nil
}

// Increment creates the entry with amount or adds amount to it
func (r *InventoryRepository) Increment(ctx context.Context, userID, cardID uuid.UUID, amount int, at time.Time) (int, error) {
	query := `
		INSERT INTO inventory_entries (user_id, card_id, quantity, acquired_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, card_id) DO UPDATE
		SET quantity = inventory_entries.quantity + EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at
		RETURNING quantity
	`

	var quantity int
	if err := r.querier.QueryRow(ctx, query, userID, cardID, amount, at).Scan(&quantity); err != nil {
		r.logger.Error("Failed to increment inventory", "user_id", userID.String(), "card_id", cardID.String(), "amount", amount, "error", err)
		return 0, fmt.Errorf("failed to increment inventory: %w", err)
	}

	return quantity, nil
}

// Decrement subtracts amount in a single conditional update, so the quantity
// can never go negative even under concurrent debits.
func (r *InventoryRepository) Decrement(ctx context.Context, userID, cardID uuid.UUID, amount int, at time.Time) (int, error) {
	query := `
		UPDATE inventory_entries
		SET quantity = quantity - $3, updated_at = $4
		WHERE user_id = $1 AND card_id = $2 AND quantity >= $3
		RETURNING quantity
	`

	var quantity int
	err := r.querier.QueryRow(ctx, query, userID, cardID, amount, at).Scan(&quantity)
	if err == nil {
		return quantity, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to decrement inventory", "user_id", userID.String(), "card_id", cardID.String(), "amount", amount, "error", err)
		return 0, fmt.Errorf("failed to decrement inventory: %w", err)
	}

	available, err := r.GetQuantity(ctx, userID, cardID)
	if err != nil {
		return 0, err
	}
	return 0, inventory.ErrInsufficientQuantity{
		UserID:    userID,
		CardID:    cardID,
		Requested: amount,
		Available: available,
	}
}

// ListByUser returns the user's non-zero holdings with card metadata
func (r *InventoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*inventory.Holding, error) {
	query := `
		SELECT e.user_id, e.card_id, e.quantity, e.acquired_at, e.updated_at,
			c.id, c.name, c.set_name, c.card_number, c.image_url, c.pokemon_type, c.hp, c.card_text, c.market_price, c.updated_at
		FROM inventory_entries e
		JOIN cards c ON c.id = e.card_id
		WHERE e.user_id = $1 AND e.quantity > 0
		ORDER BY c.name, c.set_name, c.card_number
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list inventory", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	holdings := []*inventory.Holding{}
	for rows.Next() {
		var h inventory.Holding
		err := rows.Scan(
			&h.UserID,
			&h.CardID,
			&h.Quantity,
			&h.AcquiredAt,
			&h.UpdatedAt,
			&h.Card.ID,
			&h.Card.Name,
			&h.Card.SetName,
			&h.Card.Number,
			&h.Card.ImageURL,
			&h.Card.PokemonType,
			&h.Card.HP,
			&h.Card.Text,
			&h.Card.MarketPrice,
			&h.Card.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan inventory holding", "error", err)
			return nil, fmt.Errorf("failed to scan inventory holding: %w", err)
		}
		holdings = append(holdings, &h)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over inventory", "error", err)
		return nil, fmt.Errorf("error iterating over inventory: %w", err)
	}

	return holdings, nil
}

// TotalByCard sums the quantity of a card held across all users
func (r *InventoryRepository) TotalByCard(ctx context.Context, cardID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM inventory_entries
		WHERE card_id = $1
	`

	var total int
	if err := r.querier.QueryRow(ctx, query, cardID).Scan(&total); err != nil {
		r.logger.Error("Failed to total card inventory", "card_id", cardID.String(), "error", err)
		return 0, fmt.Errorf("failed to total card inventory: %w", err)
	}
	return total, nil
}
