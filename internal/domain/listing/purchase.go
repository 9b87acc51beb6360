package listing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is the immutable record of a settled marketplace sale.
type Purchase struct {
	ID         uuid.UUID       `json:"id"`
	ListingID  uuid.UUID       `json:"listing_id"`
	BuyerID    uuid.UUID       `json:"buyer_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	CardID     uuid.UUID       `json:"card_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewPurchase records a sale at the listing's price.
func NewPurchase(l *Listing, buyerID uuid.UUID, quantity int, now time.Time) *Purchase {
	return &Purchase{
		ID:         uuid.New(),
		ListingID:  l.ID,
		BuyerID:    buyerID,
		SellerID:   l.SellerID,
		CardID:     l.CardID,
		Quantity:   quantity,
		UnitPrice:  l.Price,
		TotalPrice: l.Price.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:  now,
	}
}
