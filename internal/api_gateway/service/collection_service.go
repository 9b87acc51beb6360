package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/activity"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/poketrade-exchange/internal/settlement"
)

// CollectionServiceImpl implements the CollectionService interface
type CollectionServiceImpl struct {
	cardRepo      card.Repository
	inventoryRepo inventory.Repository
	purchaseRepo  listing.PurchaseRepository
	activityRepo  activity.Repository
	logger        *slog.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	logger *slog.Logger,
	cardRepo card.Repository,
	inventoryRepo inventory.Repository,
	purchaseRepo listing.PurchaseRepository,
	activityRepo activity.Repository,
) CollectionService {
	return &CollectionServiceImpl{
		cardRepo:      cardRepo,
		inventoryRepo: inventoryRepo,
		purchaseRepo:  purchaseRepo,
		activityRepo:  activityRepo,
		logger:        logger,
	}
}

// GetCard retrieves a card by its ID, returns card.ErrCardNotFound if not found
func (s *CollectionServiceImpl) GetCard(ctx context.Context, cardID uuid.UUID) (*card.Card, error) {
	return s.cardRepo.GetByID(ctx, cardID)
}

func (s *CollectionServiceImpl) GetCollection(ctx context.Context, userID uuid.UUID) ([]*inventory.Holding, error) {
	return s.inventoryRepo.ListByUser(ctx, userID)
}

// GetPurchases retrieves paginated purchases for a user
func (s *CollectionServiceImpl) GetPurchases(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*listing.Purchase, int64, error) {
	purchases, err := s.purchaseRepo.ListByUser(ctx, userID, perPage, settlement.Offset(page, perPage))
	if err != nil {
		s.logger.Error("Failed to get purchases", "user_id", userID.String(), "error", err)
		return nil, 0, err
	}

	total, err := s.purchaseRepo.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count purchases", "user_id", userID.String(), "error", err)
		return nil, 0, err
	}

	return purchases, total, nil
}

// GetActivity retrieves paginated activity entries for a user
func (s *CollectionServiceImpl) GetActivity(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*activity.Entry, int64, error) {
	entries, err := s.activityRepo.ListByUser(ctx, userID, perPage, settlement.Offset(page, perPage))
	if err != nil {
		s.logger.Error("Failed to get activity", "user_id", userID.String(), "error", err)
		return nil, 0, err
	}

	total, err := s.activityRepo.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count activity", "user_id", userID.String(), "error", err)
		return nil, 0, err
	}

	return entries, total, nil
}
