package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/poketrade-exchange/internal/platform/persistence"
)

const purchaseColumns = `id, listing_id, buyer_id, seller_id, card_id, quantity, unit_price, total_price, created_at`

// PurchaseRepository implements the listing.PurchaseRepository interface for PostgreSQL.
// Purchases are insert-only.
type PurchaseRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPurchaseRepository creates a new PostgreSQL purchase repository
func NewPurchaseRepository(logger *slog.Logger, db *persistence.PostgresDB) listing.PurchaseRepository {
	return &PurchaseRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *PurchaseRepository) WithTx(tx pgx.Tx) listing.PurchaseRepository {
	return &PurchaseRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanPurchase(row rowScanner, p *listing.Purchase) error {
	return row.Scan(
		&p.ID,
		&p.ListingID,
		&p.BuyerID,
		&p.SellerID,
		&p.CardID,
		&p.Quantity,
		&p.UnitPrice,
		&p.TotalPrice,
		&p.CreatedAt,
	)
}

// Create stores a purchase record
func (r *PurchaseRepository) Create(ctx context.Context, p *listing.Purchase) error {
	query := `
		INSERT INTO purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.ListingID,
		p.BuyerID,
		p.SellerID,
		p.CardID,
		p.Quantity,
		p.UnitPrice,
		p.TotalPrice,
		p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase", "id", p.ID.String(), "listing_id", p.ListingID.String(), "error", err)
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	return nil
}

// GetByID retrieves a purchase by its ID
func (r *PurchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*listing.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	var p listing.Purchase
	if err := scanPurchase(r.querier.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listing.ErrPurchaseNotFound{PurchaseID: id}
		}
		r.logger.Error("Failed to get purchase", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	return &p, nil
}

// ListByListing returns the purchases that filled a listing, oldest first
func (r *PurchaseRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*listing.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE listing_id = $1
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, listingID)
}

// ListByUser returns purchases where the user bought or sold, newest first
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*listing.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, userID, limit, offset)
}

// CountByUser counts purchases where the user bought or sold
func (r *PurchaseRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM purchases WHERE buyer_id = $1 OR seller_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count purchases", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count purchases: %w", err)
	}
	return count, nil
}

func (r *PurchaseRepository) list(ctx context.Context, query string, args ...any) ([]*listing.Purchase, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list purchases", "error", err)
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []*listing.Purchase{}
	for rows.Next() {
		var p listing.Purchase
		if err := scanPurchase(rows, &p); err != nil {
			r.logger.Error("Failed to scan purchase", "error", err)
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over purchases", "error", err)
		return nil, fmt.Errorf("error iterating over purchases: %w", err)
	}

	return purchases, nil
}
