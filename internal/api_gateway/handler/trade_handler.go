package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/api_gateway/middleware"
	"github.com/poketrade-exchange/internal/api_gateway/service"
	"github.com/poketrade-exchange/internal/domain/trade"
	"github.com/poketrade-exchange/internal/settlement"
)

// TradeHandler handles HTTP requests for trade negotiation
type TradeHandler struct {
	tradeService service.TradeService
	maxPerPage   int
	logger       *slog.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(logger *slog.Logger, tradeService service.TradeService, maxPerPage int) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
		maxPerPage:   maxPerPage,
		logger:       logger,
	}
}

// Propose opens a trade from the caller to the recipient
func (h *TradeHandler) Propose(c *gin.Context) {
	initiatorID, ok := actor(c)
	if !ok {
		return
	}

	var req ProposeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	recipientID, err := parseUUID(req.RecipientID)
	if err != nil {
		RespondBadRequest(c, "Invalid recipient ID")
		return
	}

	offers := make([]trade.OfferInput, 0, len(req.Offers))
	for _, o := range req.Offers {
		in, err := o.toInput()
		if err != nil {
			RespondBadRequest(c, "Invalid card ID")
			return
		}
		offers = append(offers, in)
	}

	t, err := h.tradeService.ProposeTrade(c.Request.Context(), settlement.ProposeTradeRequest{
		InitiatorID: initiatorID,
		RecipientID: recipientID,
		Message:     req.Message,
		Offers:      offers,
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapTradeToResponse(t))
}

// List returns the caller's PENDING trades, as initiator or recipient
func (h *TradeHandler) List(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}
	pagination = pagination.clamp(h.maxPerPage)

	trades, total, err := h.tradeService.ListPending(c.Request.Context(), userID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	response := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		response = append(response, mapTradeToResponse(t))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Page, pagination.PerPage, int(total))
}

// GetByID retrieves a trade the caller is a party of
func (h *TradeHandler) GetByID(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id", "trade")
	if !ok {
		return
	}

	t, err := h.tradeService.GetTrade(c.Request.Context(), tradeID, userID)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTradeToResponse(t))
}

// AddOffer puts one more of the caller's cards into a pending trade
func (h *TradeHandler) AddOffer(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id", "trade")
	if !ok {
		return
	}

	var req AddOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cardID, err := parseUUID(req.CardID)
	if err != nil {
		RespondBadRequest(c, "Invalid card ID")
		return
	}

	offer, err := h.tradeService.AddOffer(c.Request.Context(), tradeID, userID, cardID, req.Quantity)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapOfferToResponse(offer))
}

// Accept settles a pending trade. Only the recipient may accept.
func (h *TradeHandler) Accept(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id", "trade")
	if !ok {
		return
	}

	// the body is optional
	var req AcceptTradeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	t, err := h.tradeService.AcceptTrade(c.Request.Context(), settlement.AcceptTradeRequest{
		TradeID:        tradeID,
		ActorID:        userID,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		CorrelationID:  middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTradeToResponse(t))
}

// Reject closes a pending trade without moving cards. Only the recipient may reject.
func (h *TradeHandler) Reject(c *gin.Context) {
	h.close(c, h.tradeService.RejectTrade)
}

// Cancel withdraws a pending trade. Only the initiator may cancel.
func (h *TradeHandler) Cancel(c *gin.Context) {
	h.close(c, h.tradeService.CancelTrade)
}

func (h *TradeHandler) close(c *gin.Context, transition func(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error)) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id", "trade")
	if !ok {
		return
	}

	t, err := transition(c.Request.Context(), tradeID, userID)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTradeToResponse(t))
}
