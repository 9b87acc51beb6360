// Package settlement runs every state change of the exchange: ledger
// credits and debits, listing lifecycle, purchase settlement, trade
// negotiation and rewards. Each multi-row mutation runs in one PostgreSQL
// transaction and writes its settlement event to the outbox in that same
// transaction.
package settlement

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/poketrade-exchange/internal/domain/outbox"
	"github.com/poketrade-exchange/internal/domain/trade"
)

// TxRunner runs fn in a transaction, committing only when fn returns nil.
// Satisfied by *persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// KeyStore reserves short-lived keys. Satisfied by the Redis key store.
type KeyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CatalogClient looks up random card metadata. A nil card with a nil error
// means the catalog had nothing to offer.
type CatalogClient interface {
	FetchRandomCard(ctx context.Context) (*card.Metadata, error)
}

// Repositories groups the stores settlement writes to
type Repositories struct {
	Cards     card.Repository
	Inventory inventory.Repository
	Listings  listing.Repository
	Purchases listing.PurchaseRepository
	Trades    trade.Repository
	Outbox    outbox.Repository
}

func (r Repositories) withTx(tx pgx.Tx) Repositories {
	return Repositories{
		Cards:     r.Cards.WithTx(tx),
		Inventory: r.Inventory.WithTx(tx),
		Listings:  r.Listings.WithTx(tx),
		Purchases: r.Purchases.WithTx(tx),
		Trades:    r.Trades.WithTx(tx),
		Outbox:    r.Outbox.WithTx(tx),
	}
}

// Offset converts a 1-based page into a row offset
func Offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}
