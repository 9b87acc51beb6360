package handler

import "github.com/poketrade-exchange/internal/domain/trade"

// CreateListingRequest represents a request to list cards for sale
type CreateListingRequest struct {
	CardID      string `json:"card_id" binding:"required,uuid"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	Price       string `json:"price" binding:"required"`
	Description string `json:"description" binding:"max=500"`
}

// PurchaseRequest represents a request to buy from a listing
type PurchaseRequest struct {
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"max=128"`
}

// OfferRequest is one card and quantity in a trade proposal
type OfferRequest struct {
	UserRole string `json:"user_role" binding:"required,oneof=initiator recipient"`
	CardID   string `json:"card_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// ProposeTradeRequest represents a request to open a trade with another user
type ProposeTradeRequest struct {
	RecipientID string         `json:"recipient_id" binding:"required,uuid"`
	Message     string         `json:"message" binding:"max=500"`
	Offers      []OfferRequest `json:"offers" binding:"required,min=1,dive"`
}

// AddOfferRequest represents a request to add the caller's card to a pending trade
type AddOfferRequest struct {
	CardID   string `json:"card_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// AcceptTradeRequest carries the optional idempotency key of a trade acceptance
type AcceptTradeRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"max=128"`
}

// CardResponse represents a catalog card in API responses
type CardResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SetName     string `json:"set_name"`
	Number      string `json:"card_number"`
	ImageURL    string `json:"image_url,omitempty"`
	PokemonType string `json:"pokemon_type,omitempty"`
	HP          *int   `json:"hp,omitempty"`
	Text        string `json:"card_text,omitempty"`
	MarketPrice string `json:"market_price,omitempty"`
}

// HoldingResponse represents one card of a user's collection
type HoldingResponse struct {
	Card       CardResponse `json:"card"`
	Quantity   int          `json:"quantity"`
	AcquiredAt string       `json:"acquired_at"`
	UpdatedAt  string       `json:"updated_at"`
}

// CollectionResponse represents a user's collection
type CollectionResponse struct {
	UserID     string            `json:"user_id"`
	TotalCards int               `json:"total_cards"`
	Holdings   []HoldingResponse `json:"holdings"`
}

// ListingResponse represents a listing in API responses
type ListingResponse struct {
	ID              string `json:"id"`
	SellerID        string `json:"seller_id"`
	CardID          string `json:"card_id"`
	Price           string `json:"price"`
	Quantity        int    `json:"quantity"`
	InitialQuantity int    `json:"initial_quantity"`
	Status          string `json:"status"`
	Description     string `json:"description,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// PurchaseResponse represents a settled purchase in API responses
type PurchaseResponse struct {
	ID         string `json:"id"`
	ListingID  string `json:"listing_id"`
	BuyerID    string `json:"buyer_id"`
	SellerID   string `json:"seller_id"`
	CardID     string `json:"card_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
	CreatedAt  string `json:"created_at"`
}

// PurchaseResultResponse is the answer to a purchase: the record and the listing after it
type PurchaseResultResponse struct {
	Purchase PurchaseResponse `json:"purchase"`
	Listing  ListingResponse  `json:"listing"`
}

// OfferResponse represents one offer of a trade
type OfferResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	CardID    string `json:"card_id"`
	Quantity  int    `json:"quantity"`
	CreatedAt string `json:"created_at"`
}

// TradeResponse represents a trade with its offers
type TradeResponse struct {
	ID          string          `json:"id"`
	InitiatorID string          `json:"initiator_id"`
	RecipientID string          `json:"recipient_id"`
	Status      string          `json:"status"`
	Message     string          `json:"message,omitempty"`
	Offers      []OfferResponse `json:"offers"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// RewardResponse represents the outcome of a reward claim
type RewardResponse struct {
	Granted  bool          `json:"granted"`
	Card     *CardResponse `json:"card,omitempty"`
	Quantity int           `json:"quantity,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// ActivityResponse represents one entry of a user's history
type ActivityResponse struct {
	EventID        string `json:"event_id"`
	Kind           string `json:"kind"`
	CardID         string `json:"card_id"`
	Quantity       int    `json:"quantity"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
	ReferenceID    string `json:"reference_id"`
	UnitPrice      string `json:"unit_price,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1"`
}

// clamp caps PerPage at the configured maximum
func (p PaginationParams) clamp(maxPerPage int) PaginationParams {
	if maxPerPage > 0 && p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (o OfferRequest) toInput() (trade.OfferInput, error) {
	cardID, err := parseUUID(o.CardID)
	if err != nil {
		return trade.OfferInput{}, err
	}
	return trade.OfferInput{Role: trade.Role(o.UserRole), CardID: cardID, Quantity: o.Quantity}, nil
}
