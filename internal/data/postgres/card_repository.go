// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be rebound to a transaction with WithTx so settlement
// services can combine several of them atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/platform/persistence"
)

const cardColumns = `id, name, set_name, card_number, image_url, pokemon_type, hp, card_text, market_price, updated_at`

// CardRepository implements the card.Repository interface for PostgreSQL
type CardRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewCardRepository creates a new PostgreSQL card repository
func NewCardRepository(logger *slog.Logger, db *persistence.PostgresDB) card.Repository {
	return &CardRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *CardRepository) WithTx(tx pgx.Tx) card.Repository {
	return &CardRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanCard(row rowScanner, c *card.Card) error {
	return row.Scan(
		&c.ID,
		&c.Name,
		&c.SetName,
		&c.Number,
		&c.ImageURL,
		&c.PokemonType,
		&c.HP,
		&c.Text,
		&c.MarketPrice,
		&c.UpdatedAt,
	)
}

// Upsert inserts the card, or refreshes the descriptive fields of the card
// already stored under the same (name, set_name, card_number).
func (r *CardRepository) Upsert(ctx context.Context, c *card.Card) (*card.Card, error) {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name, set_name, card_number) DO UPDATE
		SET image_url = EXCLUDED.image_url,
			pokemon_type = EXCLUDED.pokemon_type,
			hp = EXCLUDED.hp,
			card_text = EXCLUDED.card_text,
			market_price = EXCLUDED.market_price,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + cardColumns

	var stored card.Card
	err := scanCard(r.querier.QueryRow(ctx, query,
		c.ID,
		c.Name,
		c.SetName,
		c.Number,
		c.ImageURL,
		c.PokemonType,
		c.HP,
		c.Text,
		c.MarketPrice,
		c.UpdatedAt,
	), &stored)
	if err != nil {
		r.logger.Error("Failed to upsert card", "name", c.Name, "set", c.SetName, "number", c.Number, "error", err)
		return nil, fmt.Errorf("failed to upsert card: %w", err)
	}

	return &stored, nil
}

// GetByID retrieves a card by its ID
func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*card.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	var c card.Card
	if err := scanCard(r.querier.QueryRow(ctx, query, id), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrCardNotFound{CardID: id}
		}
		r.logger.Error("Failed to get card", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	return &c, nil
}

// GetByIDs retrieves the cards that exist among ids, keyed by id
func (r *CardRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*card.Card, error) {
	cards := make(map[uuid.UUID]*card.Card, len(ids))
	if len(ids) == 0 {
		return cards, nil
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = ANY($1)`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to get cards", "count", len(ids), "error", err)
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c card.Card
		if err := scanCard(rows, &c); err != nil {
			r.logger.Error("Failed to scan card", "error", err)
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards[c.ID] = &c
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over cards", "error", err)
		return nil, fmt.Errorf("error iterating over cards: %w", err)
	}

	return cards, nil
}
