package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/activity"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/poketrade-exchange/internal/domain/trade"
	"github.com/poketrade-exchange/internal/settlement"
)

// ListingService defines the listing operations exposed over HTTP
type ListingService interface {
	// CreateListing returns inventory.ErrInsufficientQuantity when the seller
	// cannot cover the listed quantity
	CreateListing(ctx context.Context, req settlement.CreateListingRequest) (*listing.Listing, error)

	// CancelListing is only allowed for the seller of an ACTIVE listing
	CancelListing(ctx context.Context, listingID, actorID uuid.UUID) (*listing.Listing, error)

	GetListing(ctx context.Context, listingID uuid.UUID) (*listing.Listing, error)

	// ListActive returns one page of ACTIVE listings and the total count
	ListActive(ctx context.Context, page, perPage int) ([]*listing.Listing, int64, error)

	ListBySeller(ctx context.Context, sellerID uuid.UUID, page, perPage int) ([]*listing.Listing, int64, error)
}

// PurchaseService settles purchases against listings
type PurchaseService interface {
	// Purchase moves cards from seller to buyer and records the purchase atomically.
	// A reused idempotency key returns shared.ErrDuplicateRequest
	Purchase(ctx context.Context, req settlement.PurchaseRequest) (*settlement.PurchaseResult, error)
}

// TradeService defines the trade negotiation operations
type TradeService interface {
	ProposeTrade(ctx context.Context, req settlement.ProposeTradeRequest) (*trade.Trade, error)
	AddOffer(ctx context.Context, tradeID, actorID, cardID uuid.UUID, quantity int) (*trade.Offer, error)

	// AcceptTrade applies every leg or none of them
	AcceptTrade(ctx context.Context, req settlement.AcceptTradeRequest) (*trade.Trade, error)
	RejectTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error)
	CancelTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error)

	// GetTrade is only allowed for the two parties
	GetTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error)
	ListPending(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*trade.Trade, int64, error)
}

// RewardService grants catalog cards
type RewardService interface {
	GrantSignupReward(ctx context.Context, userID uuid.UUID, correlationID string) (*settlement.RewardResult, error)

	// GrantDailyReward answers Granted=false without error when today's reward was already claimed
	GrantDailyReward(ctx context.Context, userID uuid.UUID, correlationID string) (*settlement.RewardResult, error)
}

// CollectionService defines the read side of a user's cards and history
type CollectionService interface {
	GetCard(ctx context.Context, cardID uuid.UUID) (*card.Card, error)

	// GetCollection returns the user's non-zero holdings with card metadata
	GetCollection(ctx context.Context, userID uuid.UUID) ([]*inventory.Holding, error)

	// GetPurchases returns purchases where the user is buyer or seller
	GetPurchases(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*listing.Purchase, int64, error)

	// GetActivity returns recorded activity, newest first. Entries appear once
	// the activity processor consumed the settlement event.
	GetActivity(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*activity.Entry, int64, error)
}

var (
	_ ListingService  = (*settlement.ListingService)(nil)
	_ PurchaseService = (*settlement.PurchaseService)(nil)
	_ TradeService    = (*settlement.TradeService)(nil)
	_ RewardService   = (*settlement.RewardService)(nil)
)
