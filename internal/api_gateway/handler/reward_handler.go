package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/api_gateway/middleware"
	"github.com/poketrade-exchange/internal/api_gateway/service"
	"github.com/poketrade-exchange/internal/settlement"
)

// RewardHandler handles reward claims
type RewardHandler struct {
	rewardService service.RewardService
	logger        *slog.Logger
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(logger *slog.Logger, rewardService service.RewardService) *RewardHandler {
	return &RewardHandler{
		rewardService: rewardService,
		logger:        logger,
	}
}

// Signup grants the welcome card. It answers 200 with granted=false when the
// catalog had nothing to give, so signup never fails on the catalog.
func (h *RewardHandler) Signup(c *gin.Context) {
	h.claim(c, h.rewardService.GrantSignupReward)
}

// Daily grants today's card, or granted=false when it was already claimed
func (h *RewardHandler) Daily(c *gin.Context) {
	h.claim(c, h.rewardService.GrantDailyReward)
}

func (h *RewardHandler) claim(c *gin.Context, grant func(ctx context.Context, userID uuid.UUID, correlationID string) (*settlement.RewardResult, error)) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	result, err := grant(c.Request.Context(), userID, middleware.GetCorrelationID(c))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapRewardToResponse(result))
}
