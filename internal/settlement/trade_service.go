package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/shared"
	"github.com/poketrade-exchange/internal/domain/trade"
)

// ProposeTradeRequest carries a new trade and its initial offers
type ProposeTradeRequest struct {
	InitiatorID uuid.UUID
	RecipientID uuid.UUID
	Message     string
	Offers      []trade.OfferInput
}

// AcceptTradeRequest asks the recipient to settle a trade
type AcceptTradeRequest struct {
	TradeID        uuid.UUID
	ActorID        uuid.UUID
	IdempotencyKey string
	CorrelationID  string
}

// TradeService runs trade negotiation and settles accepted trades
type TradeService struct {
	db              TxRunner
	repos           Repositories
	ledger          *Ledger
	guard           *IdempotencyGuard
	clock           clock.Clock
	reservationHold bool
	logger          *slog.Logger
}

// NewTradeService creates a trade service
func NewTradeService(db TxRunner, repos Repositories, ledger *Ledger, guard *IdempotencyGuard, clk clock.Clock, reservationHold bool, logger *slog.Logger) *TradeService {
	return &TradeService{
		db:              db,
		repos:           repos,
		ledger:          ledger,
		guard:           guard,
		clock:           clk,
		reservationHold: reservationHold,
		logger:          logger.With("component", "trade_service"),
	}
}

// ProposeTrade validates the whole proposal, checks every party's balance
// per card and stores the PENDING trade with its offers.
func (s *TradeService) ProposeTrade(ctx context.Context, req ProposeTradeRequest) (*trade.Trade, error) {
	t, err := trade.NewTrade(req.InitiatorID, req.RecipientID, req.Message, req.Offers, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repos := s.repos.withTx(tx)

		if err := s.requireCards(ctx, repos, t); err != nil {
			return err
		}

		// Legs sums offers per (user, card), which is what the balance must cover
		for _, leg := range t.Legs() {
			if err := s.requireAvailable(ctx, repos, *leg.FromUserID, leg.CardID, leg.Quantity); err != nil {
				return err
			}
		}

		if err := repos.Trades.Create(ctx, t); err != nil {
			return err
		}
		for _, o := range t.Offers {
			if err := repos.Trades.CreateOffer(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Info("Trade proposal rejected",
			"initiator_id", req.InitiatorID.String(),
			"recipient_id", req.RecipientID.String(),
			"error", err)
		return nil, err
	}

	s.logger.Info("Trade proposed",
		"trade_id", t.ID.String(),
		"initiator_id", t.InitiatorID.String(),
		"recipient_id", t.RecipientID.String(),
		"offers", len(t.Offers))
	return t, nil
}

// AddOffer attaches an offer from either party to a PENDING trade. The
// balance check includes what the actor already offered of the same card.
func (s *TradeService) AddOffer(ctx context.Context, tradeID, actorID, cardID uuid.UUID, quantity int) (*trade.Offer, error) {
	var offer *trade.Offer
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repos := s.repos.withTx(tx)

		t, err := repos.Trades.LockForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}

		o, err := t.AttachOffer(actorID, cardID, quantity, s.clock.Now())
		if err != nil {
			return err
		}

		if _, err := repos.Cards.GetByID(ctx, cardID); err != nil {
			return err
		}
		if err := s.requireAvailable(ctx, repos, actorID, cardID, t.OfferedQuantity(actorID, cardID)); err != nil {
			return err
		}

		if err := repos.Trades.CreateOffer(ctx, o); err != nil {
			return err
		}
		if err := repos.Trades.UpdateStatus(ctx, t); err != nil {
			return err
		}
		offer = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trade offer added",
		"trade_id", tradeID.String(),
		"user_id", actorID.String(),
		"card_id", cardID.String(),
		"quantity", quantity)
	return offer, nil
}

// AcceptTrade settles a PENDING trade: every offer moves to the counterparty
// or, if any leg fails, nothing moves and the trade stays PENDING.
func (s *TradeService) AcceptTrade(ctx context.Context, req AcceptTradeRequest) (*trade.Trade, error) {
	logger := s.logger
	if req.CorrelationID != "" {
		logger = logger.With("correlation_id", req.CorrelationID)
	}

	var accepted *trade.Trade
	err := s.guard.Run(ctx, "trade_accept", req.ActorID, req.IdempotencyKey, func() error {
		return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			repos := s.repos.withTx(tx)
			now := s.clock.Now()

			t, err := repos.Trades.LockForUpdate(ctx, req.TradeID)
			if err != nil {
				return err
			}
			if err := t.Accept(req.ActorID, now); err != nil {
				return err
			}

			legs := t.Legs()
			ledger := s.ledger.bind(repos.Inventory)
			for _, leg := range legs {
				if err := ledger.transfer(ctx, *leg.FromUserID, leg.ToUserID, leg.CardID, leg.Quantity); err != nil {
					return err
				}
			}

			if err := repos.Trades.UpdateStatus(ctx, t); err != nil {
				return err
			}

			event := newEvent(shared.EventTypeTradeAccepted, t.ID, req.CorrelationID, nil, legs, now)
			if err := writeEvent(ctx, repos.Outbox, event, logger); err != nil {
				return err
			}

			accepted = t
			return nil
		})
	})
	if err != nil {
		logger.Info("Trade acceptance failed",
			"trade_id", req.TradeID.String(),
			"actor_id", req.ActorID.String(),
			"error", err)
		return nil, err
	}

	logger.Info("Trade accepted",
		"trade_id", accepted.ID.String(),
		"legs", len(accepted.Legs()))
	return accepted, nil
}

// RejectTrade closes a PENDING trade on the recipient's behalf
func (s *TradeService) RejectTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error) {
	return s.close(ctx, tradeID, actorID, (*trade.Trade).Reject)
}

// CancelTrade withdraws a PENDING trade on the initiator's behalf
func (s *TradeService) CancelTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error) {
	return s.close(ctx, tradeID, actorID, (*trade.Trade).Cancel)
}

func (s *TradeService) close(ctx context.Context, tradeID, actorID uuid.UUID, transition func(*trade.Trade, uuid.UUID, time.Time) error) (*trade.Trade, error) {
	var closed *trade.Trade
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.repos.Trades.WithTx(tx)

		t, err := repo.LockForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		if err := transition(t, actorID, s.clock.Now()); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, t); err != nil {
			return err
		}
		closed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trade closed",
		"trade_id", tradeID.String(),
		"actor_id", actorID.String(),
		"status", string(closed.Status))
	return closed, nil
}

// GetTrade returns a trade with its offers. Only its parties may see it.
func (s *TradeService) GetTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error) {
	t, err := s.repos.Trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !t.IsParty(actorID) {
		return nil, trade.ErrNotPermitted{TradeID: tradeID, ActorID: actorID, Action: "view"}
	}
	return t, nil
}

// ListPending returns a page of the user's PENDING trades and their total count
func (s *TradeService) ListPending(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*trade.Trade, int64, error) {
	trades, err := s.repos.Trades.ListPendingForUser(ctx, userID, perPage, Offset(page, perPage))
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repos.Trades.CountPendingForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return trades, total, nil
}

func (s *TradeService) requireCards(ctx context.Context, repos Repositories, t *trade.Trade) error {
	seen := make(map[uuid.UUID]struct{}, len(t.Offers))
	ids := make([]uuid.UUID, 0, len(t.Offers))
	for _, o := range t.Offers {
		if _, ok := seen[o.CardID]; ok {
			continue
		}
		seen[o.CardID] = struct{}{}
		ids = append(ids, o.CardID)
	}

	found, err := repos.Cards.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return card.ErrCardNotFound{CardID: id}
		}
	}
	return nil
}

func (s *TradeService) requireAvailable(ctx context.Context, repos Repositories, userID, cardID uuid.UUID, quantity int) error {
	avail, err := available(ctx, repos, s.reservationHold, userID, cardID)
	if err != nil {
		return err
	}
	if quantity > avail {
		return inventory.ErrInsufficientQuantity{
			UserID:    userID,
			CardID:    cardID,
			Requested: quantity,
			Available: avail,
		}
	}
	return nil
}
