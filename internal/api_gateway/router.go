package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poketrade-exchange/internal/api_gateway/handler"
	"github.com/poketrade-exchange/internal/api_gateway/middleware"
)

type handlers struct {
	listings   *handler.ListingHandler
	trades     *handler.TradeHandler
	rewards    *handler.RewardHandler
	collection *handler.CollectionHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		// Public reads
		v1.GET("/cards/:id", h.collection.GetCard)
		v1.GET("/users/:id/collection", h.collection.GetCollection)
		v1.GET("/listings", h.listings.List)
		v1.GET("/listings/:id", h.listings.GetByID)

		// Everything else acts as the user of the X-User-ID header
		authed := v1.Group("", middleware.Identity())

		users := authed.Group("/users")
		{
			users.GET("/:id/purchases", h.collection.GetPurchases)
			users.GET("/:id/activity", h.collection.GetActivity)
		}

		rewards := authed.Group("/rewards")
		{
			rewards.POST("/signup", h.rewards.Signup)
			rewards.POST("/daily", h.rewards.Daily)
		}

		listings := authed.Group("/listings")
		{
			listings.GET("/mine", h.listings.ListMine)
			listings.POST("", h.listings.Create)
			listings.POST("/:id/cancel", h.listings.Cancel)
			listings.POST("/:id/purchases", h.listings.Purchase)
		}

		trades := authed.Group("/trades")
		{
			trades.GET("", h.trades.List)
			trades.POST("", h.trades.Propose)
			trades.GET("/:id", h.trades.GetByID)
			trades.POST("/:id/offers", h.trades.AddOffer)
			trades.POST("/:id/accept", h.trades.Accept)
			trades.POST("/:id/reject", h.trades.Reject)
			trades.POST("/:id/cancel", h.trades.Cancel)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
