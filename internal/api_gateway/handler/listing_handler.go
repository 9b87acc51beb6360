package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poketrade-exchange/internal/api_gateway/middleware"
	"github.com/poketrade-exchange/internal/api_gateway/service"
	"github.com/poketrade-exchange/internal/settlement"
	"github.com/shopspring/decimal"
)

// ListingHandler handles HTTP requests for listings and purchases
type ListingHandler struct {
	listingService  service.ListingService
	purchaseService service.PurchaseService
	maxPerPage      int
	logger          *slog.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(logger *slog.Logger, listingService service.ListingService, purchaseService service.PurchaseService, maxPerPage int) *ListingHandler {
	return &ListingHandler{
		listingService:  listingService,
		purchaseService: purchaseService,
		maxPerPage:      maxPerPage,
		logger:          logger,
	}
}

// Create lists cards the caller holds for sale
func (h *ListingHandler) Create(c *gin.Context) {
	sellerID, ok := actor(c)
	if !ok {
		return
	}

	var req CreateListingRequest
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

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		RespondBadRequest(c, "Invalid price")
		return
	}

	l, err := h.listingService.CreateListing(c.Request.Context(), settlement.CreateListingRequest{
		SellerID:    sellerID,
		CardID:      cardID,
		Quantity:    req.Quantity,
		Price:       price,
		Description: req.Description,
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapListingToResponse(l))
}

// List returns the ACTIVE listings page by page
func (h *ListingHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}
	pagination = pagination.clamp(h.maxPerPage)

	listings, total, err := h.listingService.ListActive(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapListingsToResponse(listings), pagination.Page, pagination.PerPage, int(total))
}

// ListMine returns the caller's listings in every status
func (h *ListingHandler) ListMine(c *gin.Context) {
	sellerID, ok := actor(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}
	pagination = pagination.clamp(h.maxPerPage)

	listings, total, err := h.listingService.ListBySeller(c.Request.Context(), sellerID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapListingsToResponse(listings), pagination.Page, pagination.PerPage, int(total))
}

// GetByID retrieves a listing, returns 404 if not found
func (h *ListingHandler) GetByID(c *gin.Context) {
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}

	l, err := h.listingService.GetListing(c.Request.Context(), listingID)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapListingToResponse(l))
}

// Cancel withdraws the caller's ACTIVE listing
func (h *ListingHandler) Cancel(c *gin.Context) {
	sellerID, ok := actor(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}

	l, err := h.listingService.CancelListing(c.Request.Context(), listingID, sellerID)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapListingToResponse(l))
}

// Purchase buys part or all of a listing for the caller
func (h *ListingHandler) Purchase(c *gin.Context) {
	buyerID, ok := actor(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id", "listing")
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.purchaseService.Purchase(c.Request.Context(), settlement.PurchaseRequest{
		BuyerID:        buyerID,
		ListingID:      listingID,
		Quantity:       req.Quantity,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		CorrelationID:  middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapPurchaseResultToResponse(result))
}
