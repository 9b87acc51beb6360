package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/api_gateway/service"
)

// CollectionHandler serves cards, collections and per-user history
type CollectionHandler struct {
	collectionService service.CollectionService
	maxPerPage        int
	logger            *slog.Logger
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(logger *slog.Logger, collectionService service.CollectionService, maxPerPage int) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
		maxPerPage:        maxPerPage,
		logger:            logger,
	}
}

// GetCard retrieves a catalog card, returns 404 if not found
func (h *CollectionHandler) GetCard(c *gin.Context) {
	cardID, ok := pathID(c, "id", "card")
	if !ok {
		return
	}

	card, err := h.collectionService.GetCard(c.Request.Context(), cardID)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapCardToResponse(card))
}

// GetCollection returns any user's non-zero holdings. Collections are public.
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	userID, ok := pathID(c, "id", "user")
	if !ok {
		return
	}

	holdings, err := h.collectionService.GetCollection(c.Request.Context(), userID)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapCollectionToResponse(userID, holdings))
}

// GetPurchases returns the caller's purchases and sales
func (h *CollectionHandler) GetPurchases(c *gin.Context) {
	userID, pagination, ok := h.ownHistory(c)
	if !ok {
		return
	}

	purchases, total, err := h.collectionService.GetPurchases(c.Request.Context(), userID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	response := make([]PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		response = append(response, mapPurchaseToResponse(p))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Page, pagination.PerPage, int(total))
}

// GetActivity returns the caller's recorded activity, newest first
func (h *CollectionHandler) GetActivity(c *gin.Context) {
	userID, pagination, ok := h.ownHistory(c)
	if !ok {
		return
	}

	entries, total, err := h.collectionService.GetActivity(c.Request.Context(), userID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	response := make([]ActivityResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, mapActivityToResponse(e))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Page, pagination.PerPage, int(total))
}

// ownHistory resolves the path user and pagination for history routes, which
// only the user themselves may read
func (h *CollectionHandler) ownHistory(c *gin.Context) (uuid.UUID, PaginationParams, bool) {
	callerID, ok := actor(c)
	if !ok {
		return uuid.Nil, PaginationParams{}, false
	}
	userID, ok := pathID(c, "id", "user")
	if !ok {
		return uuid.Nil, PaginationParams{}, false
	}
	if userID != callerID {
		RespondForbidden(c, "History is only visible to its owner")
		return uuid.Nil, PaginationParams{}, false
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return uuid.Nil, PaginationParams{}, false
	}
	return userID, pagination.clamp(h.maxPerPage), true
}
