package settlement

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// PurchaseRequest asks to buy quantity cards from a listing
type PurchaseRequest struct {
	BuyerID        uuid.UUID
	ListingID      uuid.UUID
	Quantity       int
	IdempotencyKey string
	CorrelationID  string
}

// PurchaseResult is the outcome of a settled purchase
type PurchaseResult struct {
	Purchase *listing.Purchase `json:"purchase"`
	Listing  *listing.Listing  `json:"listing"`
}

// PurchaseService settles marketplace purchases
type PurchaseService struct {
	db     TxRunner
	repos  Repositories
	ledger *Ledger
	guard  *IdempotencyGuard
	clock  clock.Clock
	logger *slog.Logger
}

// NewPurchaseService creates a purchase service
func NewPurchaseService(db TxRunner, repos Repositories, ledger *Ledger, guard *IdempotencyGuard, clk clock.Clock, logger *slog.Logger) *PurchaseService {
	return &PurchaseService{
		db:     db,
		repos:  repos,
		ledger: ledger,
		guard:  guard,
		clock:  clk,
		logger: logger.With("component", "purchase_service"),
	}
}

// Purchase moves the cards from seller to buyer, fills the listing, records
// the purchase and writes the settlement event, all in one transaction.
func (s *PurchaseService) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	logger := s.logger
	if req.CorrelationID != "" {
		logger = logger.With("correlation_id", req.CorrelationID)
	}

	var result *PurchaseResult
	err := s.guard.Run(ctx, "purchase", req.BuyerID, req.IdempotencyKey, func() error {
		return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			res, err := s.settle(ctx, s.repos.withTx(tx), req, logger)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		logger.Info("Purchase failed",
			"listing_id", req.ListingID.String(),
			"buyer_id", req.BuyerID.String(),
			"quantity", req.Quantity,
			"error", err)
		return nil, err
	}

	logger.Info("Purchase settled",
		"purchase_id", result.Purchase.ID.String(),
		"listing_id", result.Listing.ID.String(),
		"buyer_id", req.BuyerID.String(),
		"quantity", req.Quantity,
		"listing_status", string(result.Listing.Status))
	return result, nil
}

func (s *PurchaseService) settle(ctx context.Context, repos Repositories, req PurchaseRequest, logger *slog.Logger) (*PurchaseResult, error) {
	now := s.clock.Now()

	l, err := repos.Listings.LockForUpdate(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if err := l.CanPurchase(req.BuyerID, req.Quantity); err != nil {
		return nil, err
	}

	if err := s.ledger.bind(repos.Inventory).transfer(ctx, l.SellerID, req.BuyerID, l.CardID, req.Quantity); err != nil {
		return nil, err
	}

	if err := l.Fill(req.BuyerID, req.Quantity, now); err != nil {
		return nil, err
	}
	if err := repos.Listings.Update(ctx, l); err != nil {
		return nil, err
	}

	p := listing.NewPurchase(l, req.BuyerID, req.Quantity, now)
	if err := repos.Purchases.Create(ctx, p); err != nil {
		return nil, err
	}

	seller := l.SellerID
	unitPrice := p.UnitPrice
	event := newEvent(shared.EventTypePurchaseSettled, p.ID, req.CorrelationID, &unitPrice, []shared.Leg{{
		FromUserID: &seller,
		ToUserID:   req.BuyerID,
		CardID:     l.CardID,
		Quantity:   req.Quantity,
	}}, now)
	if err := writeEvent(ctx, repos.Outbox, event, logger); err != nil {
		return nil, err
	}

	return &PurchaseResult{Purchase: p, Listing: l}, nil
}
