package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/domain/card"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	store    *memStore
	keys     *memKeys
	catalog  *stubCatalog
	ledger   *Ledger
	listings *ListingService
	purchase *PurchaseService
	trades   *TradeService
	rewards  *RewardService
}

func newHarness(t *testing.T, reservationHold bool) *harness {
	t.Helper()
	store := newMemStore()
	repos := store.repositories()
	keys := newMemKeys()
	catalog := &stubCatalog{}
	clk := clock.NewFixed(testNow)
	logger := newTestLogger()

	ledger := NewLedger(store, repos.Inventory, clk, logger)
	guard := NewIdempotencyGuard(keys, time.Hour, logger)

	return &harness{
		store:    store,
		keys:     keys,
		catalog:  catalog,
		ledger:   ledger,
		listings: NewListingService(store, repos, clk, reservationHold, logger),
		purchase: NewPurchaseService(store, repos, ledger, guard, clk, logger),
		trades:   NewTradeService(store, repos, ledger, guard, clk, reservationHold, logger),
		rewards:  NewRewardService(store, repos, ledger, catalog, keys, clk, logger),
	}
}

func (h *harness) card(name string) *card.Card {
	return h.store.seedCard(name)
}

func (h *harness) user(cardID uuid.UUID, quantity int) uuid.UUID {
	id := uuid.New()
	if quantity > 0 {
		h.store.seedQuantity(id, cardID, quantity)
	}
	return id
}
