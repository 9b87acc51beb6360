package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Ledger is the inventory ledger: the only code allowed to change how many
// of a card a user holds.
type Ledger struct {
	db        TxRunner
	inventory inventory.Repository
	clock     clock.Clock
	logger    *slog.Logger
}

// NewLedger creates a ledger over the inventory repository
func NewLedger(db TxRunner, inventoryRepo inventory.Repository, clk clock.Clock, logger *slog.Logger) *Ledger {
	return &Ledger{
		db:        db,
		inventory: inventoryRepo,
		clock:     clk,
		logger:    logger.With("component", "ledger"),
	}
}

// GetQuantity returns how many of the card the user holds, 0 if none.
func (l *Ledger) GetQuantity(ctx context.Context, userID, cardID uuid.UUID) (int, error) {
	return l.inventory.GetQuantity(ctx, userID, cardID)
}

// Credit adds amount in its own transaction.
func (l *Ledger) Credit(ctx context.Context, userID, cardID uuid.UUID, amount int) error {
	return l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return l.bind(l.inventory.WithTx(tx)).credit(ctx, userID, cardID, amount)
	})
}

// Debit removes amount in its own transaction.
func (l *Ledger) Debit(ctx context.Context, userID, cardID uuid.UUID, amount int) error {
	return l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return l.bind(l.inventory.WithTx(tx)).debit(ctx, userID, cardID, amount)
	})
}

// Transfer moves amount between users in its own transaction.
func (l *Ledger) Transfer(ctx context.Context, fromUserID, toUserID, cardID uuid.UUID, amount int) error {
	return l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return l.bind(l.inventory.WithTx(tx)).transfer(ctx, fromUserID, toUserID, cardID, amount)
	})
}

// bind returns the ledger operations on a repository already scoped to the
// caller's transaction.
func (l *Ledger) bind(repo inventory.Repository) *txLedger {
	return &txLedger{repo: repo, clock: l.clock, logger: l.logger}
}

type txLedger struct {
	repo   inventory.Repository
	clock  clock.Clock
	logger *slog.Logger
}

func (t *txLedger) credit(ctx context.Context, userID, cardID uuid.UUID, amount int) error {
	if err := inventory.ValidateAmount(amount); err != nil {
		return err
	}

	quantity, err := t.repo.Increment(ctx, userID, cardID, amount, t.clock.Now())
	if err != nil {
		return err
	}

	t.logger.Debug("Ledger credit",
		"user_id", userID.String(),
		"card_id", cardID.String(),
		"amount", amount,
		"quantity", quantity)
	return nil
}

func (t *txLedger) debit(ctx context.Context, userID, cardID uuid.UUID, amount int) error {
	if err := inventory.ValidateAmount(amount); err != nil {
		return err
	}

	quantity, err := t.repo.Decrement(ctx, userID, cardID, amount, t.clock.Now())
	if err != nil {
		return err
	}

	t.logger.Debug("Ledger debit",
		"user_id", userID.String(),
		"card_id", cardID.String(),
		"amount", amount,
		"quantity", quantity)
	return nil
}

// transfer debits first; the credit never runs when the debit fails.
func (t *txLedger) transfer(ctx context.Context, fromUserID, toUserID, cardID uuid.UUID, amount int) error {
	if fromUserID == toUserID {
		return fmt.Errorf("%w: cannot transfer to the same user", shared.ErrInvalidInput)
	}
	if err := t.debit(ctx, fromUserID, cardID, amount); err != nil {
		return err
	}
	return t.credit(ctx, toUserID, cardID, amount)
}

// available returns what the user can still commit of a card: the locked
// ledger quantity minus, when hold is set, what their ACTIVE listings
// already reserve.
func available(ctx context.Context, repos Repositories, hold bool, userID, cardID uuid.UUID) (int, error) {
	held, err := repos.Inventory.LockQuantity(ctx, userID, cardID)
	if err != nil {
		return 0, err
	}
	if !hold {
		return held, nil
	}

	reserved, err := repos.Listings.SumActiveQuantity(ctx, userID, cardID)
	if err != nil {
		return 0, err
	}
	if reserved >= held {
		return 0, nil
	}
	return held - reserved, nil
}
