// Package listing models marketplace offers to sell a quantity of one card
// at a fixed unit price, and the purchases that fill them.
package listing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a listing
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSold      Status = "SOLD"
	StatusCancelled Status = "CANCELLED"
)

// Listing is an offer to sell. Quantity is what remains for sale;
// InitialQuantity is what was listed.
type Listing struct {
	ID              uuid.UUID       `json:"id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	CardID          uuid.UUID       `json:"card_id"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	InitialQuantity int             `json:"initial_quantity"`
	Status          Status          `json:"status"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewListing validates the request and builds an ACTIVE listing. It does not
// check the seller's inventory; that needs the ledger.
func NewListing(sellerID, cardID uuid.UUID, quantity int, price decimal.Decimal, description string, now time.Time) (*Listing, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: listing quantity %d", shared.ErrInvalidQuantity, quantity)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", shared.ErrInvalidInput)
	}
	if sellerID == uuid.Nil || cardID == uuid.Nil {
		return nil, fmt.Errorf("%w: seller and card are required", shared.ErrInvalidInput)
	}

	return &Listing{
		ID:              uuid.New(),
		SellerID:        sellerID,
		CardID:          cardID,
		Price:           price,
		Quantity:        quantity,
		InitialQuantity: quantity,
		Status:          StatusActive,
		Description:     description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsActive reports whether the listing can still be purchased or cancelled.
func (l *Listing) IsActive() bool {
	return l.Status == StatusActive
}

// CanPurchase checks a purchase request against the listing without mutating it.
func (l *Listing) CanPurchase(buyerID uuid.UUID, quantity int) error {
	if !l.IsActive() {
		return ErrListingNotActive{ListingID: l.ID, Status: l.Status}
	}
	if buyerID == l.SellerID {
		return ErrNotPermitted{ListingID: l.ID, ActorID: buyerID, Action: "purchase own listing"}
	}
	if quantity < 1 {
		return fmt.Errorf("%w: purchase quantity %d", shared.ErrInvalidQuantity, quantity)
	}
	if quantity > l.Quantity {
		return ErrExceedsRemaining{ListingID: l.ID, Requested: quantity, Remaining: l.Quantity}
	}
	return nil
}

// Fill takes quantity off the listing, closing it as SOLD when nothing remains.
func (l *Listing) Fill(buyerID uuid.UUID, quantity int, now time.Time) error {
	if err := l.CanPurchase(buyerID, quantity); err != nil {
		return err
	}
	l.Quantity -= quantity
	if l.Quantity == 0 {
		l.Status = StatusSold
	}
	l.UpdatedAt = now
	return nil
}

// Cancel withdraws an ACTIVE listing. Only the seller may cancel.
func (l *Listing) Cancel(actorID uuid.UUID, now time.Time) error {
	if actorID != l.SellerID {
		return ErrNotPermitted{ListingID: l.ID, ActorID: actorID, Action: "cancel"}
	}
	if !l.IsActive() {
		return ErrListingNotActive{ListingID: l.ID, Status: l.Status}
	}
	l.Status = StatusCancelled
	l.UpdatedAt = now
	return nil
}
