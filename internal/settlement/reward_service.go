package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/shared"
)

const (
	rewardQuantity = 1
	// the gate outlives the UTC day it guards whatever time it was taken
	dailyGateTTL = 48 * time.Hour
	// zero TTL keeps the key until it is released
	signupGateTTL = 0
)

// RewardResult reports whether a card was granted and which one
type RewardResult struct {
	Granted  bool       `json:"granted"`
	Card     *card.Card `json:"card,omitempty"`
	Quantity int        `json:"quantity"`
	Reason   string     `json:"reason,omitempty"`
}

// RewardService grants catalog cards to users on signup and once per day
type RewardService struct {
	db      TxRunner
	repos   Repositories
	ledger  *Ledger
	catalog CatalogClient
	keys    KeyStore
	clock   clock.Clock
	logger  *slog.Logger
}

// NewRewardService creates a reward service
func NewRewardService(db TxRunner, repos Repositories, ledger *Ledger, catalog CatalogClient, keys KeyStore, clk clock.Clock, logger *slog.Logger) *RewardService {
	return &RewardService{
		db:      db,
		repos:   repos,
		ledger:  ledger,
		catalog: catalog,
		keys:    keys,
		clock:   clk,
		logger:  logger.With("component", "reward_service"),
	}
}

func signupRewardKey(userID uuid.UUID) string {
	return fmt.Sprintf("reward:signup:%s", userID)
}

func dailyRewardKey(userID uuid.UUID, day string) string {
	return fmt.Sprintf("reward:daily:%s:%s", userID, day)
}

// GrantSignupReward gives a new user one random card, once per user. Catalog
// failures never fail the call; the result just carries no card.
func (s *RewardService) GrantSignupReward(ctx context.Context, userID uuid.UUID, correlationID string) (*RewardResult, error) {
	return s.gatedGrant(ctx, userID, correlationID, signupRewardKey(userID), signupGateTTL, "signup reward already claimed")
}

// GrantDailyReward gives one random card at most once per user per UTC day.
func (s *RewardService) GrantDailyReward(ctx context.Context, userID uuid.UUID, correlationID string) (*RewardResult, error) {
	key := dailyRewardKey(userID, clock.Day(s.clock.Now()))
	return s.gatedGrant(ctx, userID, correlationID, key, dailyGateTTL, "daily reward already claimed")
}

// gatedGrant runs grant behind a one-shot key. The key is released when
// nothing was granted so the user can claim again.
func (s *RewardService) gatedGrant(ctx context.Context, userID uuid.UUID, correlationID, key string, ttl time.Duration, claimed string) (*RewardResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user is required", shared.ErrInvalidInput)
	}

	ok, err := s.keys.Reserve(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RewardResult{Granted: false, Reason: claimed}, nil
	}

	result, err := s.grant(ctx, userID, correlationID)
	if err != nil || !result.Granted {
		if relErr := releaseKey(ctx, s.keys, key); relErr != nil {
			s.logger.Error("Failed to release reward gate", "key", key, "error", relErr)
		}
	}
	return result, err
}

func (s *RewardService) grant(ctx context.Context, userID uuid.UUID, correlationID string) (*RewardResult, error) {
	meta, err := s.catalog.FetchRandomCard(ctx)
	if err != nil {
		s.logger.Warn("Catalog lookup failed, no reward granted", "user_id", userID.String(), "error", err)
		return &RewardResult{Granted: false, Reason: "catalog unavailable"}, nil
	}
	if meta == nil {
		s.logger.Warn("Catalog returned no card, no reward granted", "user_id", userID.String())
		return &RewardResult{Granted: false, Reason: "no card available"}, nil
	}

	now := s.clock.Now()
	c, err := card.NewCard(*meta, now)
	if err != nil {
		s.logger.Warn("Catalog returned an invalid card, no reward granted", "user_id", userID.String(), "error", err)
		return &RewardResult{Granted: false, Reason: "no card available"}, nil
	}

	var stored *card.Card
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repos := s.repos.withTx(tx)

		stored, err = repos.Cards.Upsert(ctx, c)
		if err != nil {
			return err
		}

		if err := s.ledger.bind(repos.Inventory).credit(ctx, userID, stored.ID, rewardQuantity); err != nil {
			return err
		}

		event := newEvent(shared.EventTypeRewardGranted, stored.ID, correlationID, nil, []shared.Leg{{
			ToUserID: userID,
			CardID:   stored.ID,
			Quantity: rewardQuantity,
		}}, now)
		return writeEvent(ctx, repos.Outbox, event, s.logger)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reward granted",
		"user_id", userID.String(),
		"card_id", stored.ID.String(),
		"card_name", stored.Name)
	return &RewardResult{Granted: true, Card: stored, Quantity: rewardQuantity}, nil
}
