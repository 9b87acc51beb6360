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

const listingColumns = `id, seller_id, card_id, price, quantity, initial_quantity, status, description, created_at, updated_at`

// ListingRepository implements the listing.Repository interface for PostgreSQL
type ListingRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewListingRepository creates a new PostgreSQL listing repository
func NewListingRepository(logger *slog.Logger, db *persistence.PostgresDB) listing.Repository {
	return &ListingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *ListingRepository) WithTx(tx pgx.Tx) listing.Repository {
	return &ListingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanListing(row rowScanner, l *listing.Listing) error {
	return row.Scan(
		&l.ID,
		&l.SellerID,
		&l.CardID,
		&l.Price,
		&l.Quantity,
		&l.InitialQuantity,
		&l.Status,
		&l.Description,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
}

// Create stores a new listing
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		l.ID,
		l.SellerID,
		l.CardID,
		l.Price,
		l.Quantity,
		l.InitialQuantity,
		l.Status,
		l.Description,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create listing", "id", l.ID.String(), "error", err)
		return fmt.Errorf("failed to create listing: %w", err)
	}

	return nil
}

// GetByID retrieves a listing by its ID
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return r.getOne(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id, "get listing")
}

// LockForUpdate obtains a row lock on the listing and returns its current state.
// Purchases serialize on this lock.
func (r *ListingRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return r.getOne(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id, "lock listing for update")
}

func (r *ListingRepository) getOne(ctx context.Context, query string, id uuid.UUID, op string) (*listing.Listing, error) {
	var l listing.Listing
	if err := scanListing(r.querier.QueryRow(ctx, query, id), &l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listing.ErrListingNotFound{ListingID: id}
		}
		r.logger.Error("Failed to "+op, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return &l, nil
}

// Update persists the mutable fields of a listing
func (r *ListingRepository) Update(ctx context.Context, l *listing.Listing) error {
	query := `
		UPDATE listings
		SET quantity = $1, status = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, l.Quantity, l.Status, l.UpdatedAt, l.ID)
	if err != nil {
		r.logger.Error("Failed to update listing", "id", l.ID.String(), "error", err)
		return fmt.Errorf("failed to update listing: %w", err)
	}

	if result.RowsAffected() == 0 {
		return listing.ErrListingNotFound{ListingID: l.ID}
	}

	return nil
}

// ListActive returns ACTIVE listings, newest first
func (r *ListingRepository) ListActive(ctx context.Context, limit, offset int) ([]*listing.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE status = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, listing.StatusActive, limit, offset)
}

// CountActive counts ACTIVE listings
func (r *ListingRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM listings WHERE status = $1`, listing.StatusActive)
}

// ListBySeller returns every listing of the seller regardless of status, newest first
func (r *ListingRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*listing.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE seller_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, sellerID, limit, offset)
}

// CountBySeller counts listings of the seller
func (r *ListingRepository) CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM listings WHERE seller_id = $1`, sellerID)
}

// SumActiveQuantity is the remaining quantity of a card across the seller's ACTIVE listings
func (r *ListingRepository) SumActiveQuantity(ctx context.Context, sellerID, cardID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM listings
		WHERE seller_id = $1 AND card_id = $2 AND status = $3
	`

	var total int
	if err := r.querier.QueryRow(ctx, query, sellerID, cardID, listing.StatusActive).Scan(&total); err != nil {
		r.logger.Error("Failed to sum active listing quantity", "seller_id", sellerID.String(), "card_id", cardID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum active listing quantity: %w", err)
	}
	return total, nil
}

func (r *ListingRepository) list(ctx context.Context, query string, args ...any) ([]*listing.Listing, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list listings", "error", err)
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	listings := []*listing.Listing{}
	for rows.Next() {
		var l listing.Listing
		if err := scanListing(rows, &l); err != nil {
			r.logger.Error("Failed to scan listing", "error", err)
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, &l)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over listings", "error", err)
		return nil, fmt.Errorf("error iterating over listings: %w", err)
	}

	return listings, nil
}

func (r *ListingRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count listings", "error", err)
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}
