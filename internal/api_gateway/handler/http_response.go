package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poketrade-exchange/internal/api_gateway/middleware"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes the page returned by list endpoints
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

// NewPaginatedResponse wraps one page of data. TotalPages is zero when perPage is.
func NewPaginatedResponse(data interface{}, page, perPage, totalItems int) *Response {
	meta := &MetaInfo{Page: page, PerPage: perPage, TotalItems: totalItems}
	if perPage > 0 {
		meta.TotalPages = (totalItems + perPage - 1) / perPage
	}
	return &Response{Data: data, Meta: meta}
}

func respond(c *gin.Context, status int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, response)
}

func respondError(c *gin.Context, status int, code, message string) {
	respond(c, status, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, &Response{Data: data})
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, &Response{Data: data})
}

func RespondWithPaginatedData(c *gin.Context, status int, data interface{}, page, perPage, totalItems int) {
	respond(c, status, NewPaginatedResponse(data, page, perPage, totalItems))
}

func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// An empty message falls back to a generic one
func RespondUnauthorized(c *gin.Context, message string) {
	respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", orDefault(message, "Unauthorized"))
}

func RespondForbidden(c *gin.Context, message string) {
	respondError(c, http.StatusForbidden, "FORBIDDEN", orDefault(message, "Forbidden"))
}

func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, "NOT_FOUND", orDefault(message, "Resource not found"))
}

func RespondInternalError(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// domainErrors maps settlement error kinds to HTTP answers, first match wins.
// Error text stays in the logs; clients only see the fixed message.
var domainErrors = []struct {
	kind    error
	status  int
	code    string
	message string
}{
	{shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{shared.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN", "You are not allowed to perform this operation"},
	{shared.ErrInsufficientQuantity, http.StatusConflict, "INSUFFICIENT_QUANTITY", "Insufficient card quantity"},
	{shared.ErrInvalidState, http.StatusConflict, "INVALID_STATE", "Operation not allowed in the current state"},
	{shared.ErrDuplicateRequest, http.StatusConflict, "DUPLICATE_REQUEST", "This request was already processed"},
	{shared.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be at least 1"},
	{shared.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST", "Invalid request"},
}

// RespondWithDomainError answers with the status of err's kind. Anything
// unrecognised is logged and hidden behind a 500.
func RespondWithDomainError(c *gin.Context, logger *slog.Logger, err error) {
	for _, mapping := range domainErrors {
		if errors.Is(err, mapping.kind) {
			logger.Warn("Request rejected",
				"path", c.FullPath(),
				"correlation_id", middleware.GetCorrelationID(c),
				"code", mapping.code,
				"error", err)
			respondError(c, mapping.status, mapping.code, mapping.message)
			return
		}
	}

	logger.Error("Unhandled error",
		"path", c.FullPath(),
		"correlation_id", middleware.GetCorrelationID(c),
		"error", err)
	RespondInternalError(c)
}
