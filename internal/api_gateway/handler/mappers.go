package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/api_gateway/middleware"
	"github.com/poketrade-exchange/internal/domain/activity"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/poketrade-exchange/internal/domain/trade"
	"github.com/poketrade-exchange/internal/settlement"
)

var errInvalidID = errors.New("invalid id")

func parseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return id, nil
}

// pathID parses a uuid path parameter, answering 400 when it is malformed
func pathID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := parseUUID(c.Param(name))
	if err != nil {
		RespondBadRequest(c, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated user, answering 401 when the identity
// middleware did not run for this route
func actor(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
	}
	return userID, ok
}

// idempotencyKey prefers the body field and falls back to the Idempotency-Key header
func idempotencyKey(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader("Idempotency-Key")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func mapCardToResponse(c *card.Card) CardResponse {
	response := CardResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		SetName:     c.SetName,
		Number:      c.Number,
		ImageURL:    c.ImageURL,
		PokemonType: c.PokemonType,
		HP:          c.HP,
		Text:        c.Text,
	}
	if c.MarketPrice.Valid {
		response.MarketPrice = c.MarketPrice.Decimal.StringFixed(2)
	}
	return response
}

func mapCollectionToResponse(userID uuid.UUID, holdings []*inventory.Holding) CollectionResponse {
	response := CollectionResponse{
		UserID:   userID.String(),
		Holdings: make([]HoldingResponse, 0, len(holdings)),
	}
	for _, h := range holdings {
		response.TotalCards += h.Quantity
		response.Holdings = append(response.Holdings, HoldingResponse{
			Card:       mapCardToResponse(&h.Card),
			Quantity:   h.Quantity,
			AcquiredAt: formatTime(h.AcquiredAt),
			UpdatedAt:  formatTime(h.UpdatedAt),
		})
	}
	return response
}

func mapListingToResponse(l *listing.Listing) ListingResponse {
	return ListingResponse{
		ID:              l.ID.String(),
		SellerID:        l.SellerID.String(),
		CardID:          l.CardID.String(),
		Price:           l.Price.StringFixed(2),
		Quantity:        l.Quantity,
		InitialQuantity: l.InitialQuantity,
		Status:          string(l.Status),
		Description:     l.Description,
		CreatedAt:       formatTime(l.CreatedAt),
		UpdatedAt:       formatTime(l.UpdatedAt),
	}
}

func mapListingsToResponse(listings []*listing.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, mapListingToResponse(l))
	}
	return out
}

func mapPurchaseToResponse(p *listing.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:         p.ID.String(),
		ListingID:  p.ListingID.String(),
		BuyerID:    p.BuyerID.String(),
		SellerID:   p.SellerID.String(),
		CardID:     p.CardID.String(),
		Quantity:   p.Quantity,
		UnitPrice:  p.UnitPrice.StringFixed(2),
		TotalPrice: p.TotalPrice.StringFixed(2),
		CreatedAt:  formatTime(p.CreatedAt),
	}
}

func mapPurchaseResultToResponse(r *settlement.PurchaseResult) PurchaseResultResponse {
	return PurchaseResultResponse{
		Purchase: mapPurchaseToResponse(r.Purchase),
		Listing:  mapListingToResponse(r.Listing),
	}
}

func mapOfferToResponse(o *trade.Offer) OfferResponse {
	return OfferResponse{
		ID:        o.ID.String(),
		UserID:    o.UserID.String(),
		CardID:    o.CardID.String(),
		Quantity:  o.Quantity,
		CreatedAt: formatTime(o.CreatedAt),
	}
}

func mapTradeToResponse(t *trade.Trade) TradeResponse {
	response := TradeResponse{
		ID:          t.ID.String(),
		InitiatorID: t.InitiatorID.String(),
		RecipientID: t.RecipientID.String(),
		Status:      string(t.Status),
		Message:     t.Message,
		Offers:      make([]OfferResponse, 0, len(t.Offers)),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
	for _, o := range t.Offers {
		response.Offers = append(response.Offers, mapOfferToResponse(o))
	}
	return response
}

func mapRewardToResponse(r *settlement.RewardResult) RewardResponse {
	response := RewardResponse{Granted: r.Granted, Quantity: r.Quantity, Reason: r.Reason}
	if r.Card != nil {
		c := mapCardToResponse(r.Card)
		response.Card = &c
	}
	return response
}

func mapActivityToResponse(e *activity.Entry) ActivityResponse {
	response := ActivityResponse{
		EventID:     e.EventID.String(),
		Kind:        string(e.Kind),
		CardID:      e.CardID.String(),
		Quantity:    e.Quantity,
		ReferenceID: e.ReferenceID.String(),
		UnitPrice:   e.UnitPrice,
		OccurredAt:  formatTime(e.OccurredAt),
	}
	if e.CounterpartyID != nil {
		response.CounterpartyID = e.CounterpartyID.String()
	}
	return response
}
