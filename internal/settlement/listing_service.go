package settlement

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/shopspring/decimal"
)

// CreateListingRequest carries a seller's offer to sell
type CreateListingRequest struct {
	SellerID    uuid.UUID
	CardID      uuid.UUID
	Quantity    int
	Price       decimal.Decimal
	Description string
}

// ListingService manages the marketplace listing lifecycle
type ListingService struct {
	db              TxRunner
	repos           Repositories
	clock           clock.Clock
	reservationHold bool
	logger          *slog.Logger
}

// NewListingService creates a listing service. With reservationHold set, the
// remaining quantity of a seller's ACTIVE listings is not available for new
// listings or trade offers.
func NewListingService(db TxRunner, repos Repositories, clk clock.Clock, reservationHold bool, logger *slog.Logger) *ListingService {
	return &ListingService{
		db:              db,
		repos:           repos,
		clock:           clk,
		reservationHold: reservationHold,
		logger:          logger.With("component", "listing_service"),
	}
}

// CreateListing validates the request against the seller's available balance
// and stores an ACTIVE listing. The ledger is not debited.
func (s *ListingService) CreateListing(ctx context.Context, req CreateListingRequest) (*listing.Listing, error) {
	l, err := listing.NewListing(req.SellerID, req.CardID, req.Quantity, req.Price, req.Description, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repos := s.repos.withTx(tx)

		if _, err := repos.Cards.GetByID(ctx, l.CardID); err != nil {
			return err
		}

		avail, err := available(ctx, repos, s.reservationHold, l.SellerID, l.CardID)
		if err != nil {
			return err
		}
		if l.Quantity > avail {
			return inventory.ErrInsufficientQuantity{
				UserID:    l.SellerID,
				CardID:    l.CardID,
				Requested: l.Quantity,
				Available: avail,
			}
		}

		return repos.Listings.Create(ctx, l)
	})
	if err != nil {
		s.logger.Info("Listing rejected",
			"seller_id", req.SellerID.String(),
			"card_id", req.CardID.String(),
			"quantity", req.Quantity,
			"error", err)
		return nil, err
	}

	s.logger.Info("Listing created",
		"listing_id", l.ID.String(),
		"seller_id", l.SellerID.String(),
		"card_id", l.CardID.String(),
		"quantity", l.Quantity,
		"price", l.Price.String())
	return l, nil
}

// CancelListing withdraws an ACTIVE listing. Only the seller may cancel.
func (s *ListingService) CancelListing(ctx context.Context, listingID, actorID uuid.UUID) (*listing.Listing, error) {
	var cancelled *listing.Listing
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.repos.Listings.WithTx(tx)

		l, err := repo.LockForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if err := l.Cancel(actorID, s.clock.Now()); err != nil {
			return err
		}
		if err := repo.Update(ctx, l); err != nil {
			return err
		}
		cancelled = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Listing cancelled", "listing_id", listingID.String(), "seller_id", actorID.String())
	return cancelled, nil
}

// GetListing returns a listing by id
func (s *ListingService) GetListing(ctx context.Context, listingID uuid.UUID) (*listing.Listing, error) {
	return s.repos.Listings.GetByID(ctx, listingID)
}

// ListActive returns a page of ACTIVE marketplace listings and their total count
func (s *ListingService) ListActive(ctx context.Context, page, perPage int) ([]*listing.Listing, int64, error) {
	listings, err := s.repos.Listings.ListActive(ctx, perPage, Offset(page, perPage))
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repos.Listings.CountActive(ctx)
	if err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}

// ListBySeller returns a page of one seller's listings in any state
func (s *ListingService) ListBySeller(ctx context.Context, sellerID uuid.UUID, page, perPage int) ([]*listing.Listing, int64, error) {
	listings, err := s.repos.Listings.ListBySeller(ctx, sellerID, perPage, Offset(page, perPage))
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repos.Listings.CountBySeller(ctx, sellerID)
	if err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}
