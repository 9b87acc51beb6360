package settlement

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/poketrade-exchange/internal/domain/outbox"
	"github.com/poketrade-exchange/internal/domain/shared"
	"github.com/poketrade-exchange/internal/domain/trade"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type invKey struct{ user, card uuid.UUID }

type storeState struct {
	cards     map[uuid.UUID]card.Card
	inventory map[invKey]inventory.Entry
	listings  map[uuid.UUID]listing.Listing
	purchases []listing.Purchase
	trades    map[uuid.UUID]trade.Trade
	offers    []trade.Offer
	outbox    []outbox.Message
}

func (s storeState) clone() storeState {
	c := storeState{
		cards:     make(map[uuid.UUID]card.Card, len(s.cards)),
		inventory: make(map[invKey]inventory.Entry, len(s.inventory)),
		listings:  make(map[uuid.UUID]listing.Listing, len(s.listings)),
		purchases: append([]listing.Purchase(nil), s.purchases...),
		trades:    make(map[uuid.UUID]trade.Trade, len(s.trades)),
		offers:    append([]trade.Offer(nil), s.offers...),
		outbox:    append([]outbox.Message(nil), s.outbox...),
	}
	for k, v := range s.cards {
		c.cards[k] = v
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.listings {
		c.listings[k] = v
	}
	for k, v := range s.trades {
		c.trades[k] = v
	}
	return c
}

// memStore is an in-memory stand-in for PostgreSQL. ExecuteTx serializes
// transactions and restores a snapshot when fn fails.
type memStore struct {
	txMu  sync.Mutex
	state storeState

	// failOutboxCreate makes the next outbox insert fail
	failOutboxCreate error
	nextOutboxID     int64
}

func newMemStore() *memStore {
	return &memStore{state: storeState{}.clone()}
}

func (m *memStore) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.state.clone()
	if err := fn(nil); err != nil {
		m.state = snapshot
		return err
	}
	return ctx.Err()
}

func (m *memStore) repositories() Repositories {
	return Repositories{
		Cards:     &memCards{m},
		Inventory: &memInventory{m},
		Listings:  &memListings{m},
		Purchases: &memPurchases{m},
		Trades:    &memTrades{m},
		Outbox:    &memOutbox{m},
	}
}

func (m *memStore) quantity(user, cardID uuid.UUID) int {
	return m.state.inventory[invKey{user, cardID}].Quantity
}

func (m *memStore) total(cardID uuid.UUID) int {
	total := 0
	for k, e := range m.state.inventory {
		if k.card == cardID {
			total += e.Quantity
		}
	}
	return total
}

func (m *memStore) seedCard(name string) *card.Card {
	c, err := card.NewCard(card.Metadata{Name: name, SetName: "Base", Number: uuid.NewString()[:4]}, time.Now())
	if err != nil {
		panic(err)
	}
	m.state.cards[c.ID] = *c
	return c
}

func (m *memStore) seedQuantity(user, cardID uuid.UUID, quantity int) {
	m.state.inventory[invKey{user, cardID}] = inventory.Entry{UserID: user, CardID: cardID, Quantity: quantity}
}

func (m *memStore) events() []*shared.SettlementEvent {
	var events []*shared.SettlementEvent
	for _, msg := range m.state.outbox {
		e, err := msg.Event()
		if err != nil {
			panic(err)
		}
		events = append(events, e)
	}
	return events
}

type memCards struct{ m *memStore }

func (r *memCards) Upsert(ctx context.Context, c *card.Card) (*card.Card, error) {
	for id, existing := range r.m.state.cards {
		if existing.Key() == c.Key() {
			updated := *c
			updated.ID = id
			r.m.state.cards[id] = updated
			return &updated, nil
		}
	}
	r.m.state.cards[c.ID] = *c
	stored := *c
	return &stored, nil
}

func (r *memCards) GetByID(ctx context.Context, id uuid.UUID) (*card.Card, error) {
	c, ok := r.m.state.cards[id]
	if !ok {
		return nil, card.ErrCardNotFound{CardID: id}
	}
	return &c, nil
}

func (r *memCards) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*card.Card, error) {
	found := make(map[uuid.UUID]*card.Card)
	for _, id := range ids {
		if c, ok := r.m.state.cards[id]; ok {
			found[id] = &c
		}
	}
	return found, nil
}

func (r *memCards) WithTx(tx pgx.Tx) card.Repository { return r }

type memInventory struct{ m *memStore }

func (r *memInventory) GetQuantity(ctx context.Context, userID, cardID uuid.UUID) (int, error) {
	return r.m.quantity(userID, cardID), nil
}

func (r *memInventory) LockQuantity(ctx context.Context, userID, cardID uuid.UUID) (int, error) {
	return r.m.quantity(userID, cardID), nil
}

func (r *memInventory) Increment(ctx context.Context, userID, cardID uuid.UUID, amount int, at time.Time) (int, error) {
	k := invKey{userID, cardID}
	e, ok := r.m.state.inventory[k]
	if !ok {
		e = inventory.Entry{UserID: userID, CardID: cardID, AcquiredAt: at}
	}
	e.Quantity += amount
	e.UpdatedAt = at
	r.m.state.inventory[k] = e
	return e.Quantity, nil
}

func (r *memInventory) Decrement(ctx context.Context, userID, cardID uuid.UUID, amount int, at time.Time) (int, error) {
	k := invKey{userID, cardID}
	e := r.m.state.inventory[k]
	if e.Quantity < amount {
		return 0, inventory.ErrInsufficientQuantity{UserID: userID, CardID: cardID, Requested: amount, Available: e.Quantity}
	}
	e.Quantity -= amount
	e.UpdatedAt = at
	r.m.state.inventory[k] = e
	return e.Quantity, nil
}

func (r *memInventory) ListByUser(ctx context.Context, userID uuid.UUID) ([]*inventory.Holding, error) {
	holdings := []*inventory.Holding{}
	for k, e := range r.m.state.inventory {
		if k.user == userID && e.Quantity > 0 {
			holdings = append(holdings, &inventory.Holding{Entry: e, Card: r.m.state.cards[k.card]})
		}
	}
	return holdings, nil
}

func (r *memInventory) TotalByCard(ctx context.Context, cardID uuid.UUID) (int, error) {
	return r.m.total(cardID), nil
}

func (r *memInventory) WithTx(tx pgx.Tx) inventory.Repository { return r }

type memListings struct{ m *memStore }

func (r *memListings) Create(ctx context.Context, l *listing.Listing) error {
	r.m.state.listings[l.ID] = *l
	return nil
}

func (r *memListings) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	l, ok := r.m.state.listings[id]
	if !ok {
		return nil, listing.ErrListingNotFound{ListingID: id}
	}
	return &l, nil
}

func (r *memListings) LockForUpdate(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return r.GetByID(ctx, id)
}

func (r *memListings) Update(ctx context.Context, l *listing.Listing) error {
	if _, ok := r.m.state.listings[l.ID]; !ok {
		return listing.ErrListingNotFound{ListingID: l.ID}
	}
	r.m.state.listings[l.ID] = *l
	return nil
}

func (r *memListings) filter(keep func(listing.Listing) bool) []*listing.Listing {
	out := []*listing.Listing{}
	for _, l := range r.m.state.listings {
		if keep(l) {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (r *memListings) ListActive(ctx context.Context, limit, offset int) ([]*listing.Listing, error) {
	return paginate(r.filter(func(l listing.Listing) bool { return l.IsActive() }), limit, offset), nil
}

func (r *memListings) CountActive(ctx context.Context) (int64, error) {
	return int64(len(r.filter(func(l listing.Listing) bool { return l.IsActive() }))), nil
}

func (r *memListings) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*listing.Listing, error) {
	return paginate(r.filter(func(l listing.Listing) bool { return l.SellerID == sellerID }), limit, offset), nil
}

func (r *memListings) CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return int64(len(r.filter(func(l listing.Listing) bool { return l.SellerID == sellerID }))), nil
}

func (r *memListings) SumActiveQuantity(ctx context.Context, sellerID, cardID uuid.UUID) (int, error) {
	total := 0
	for _, l := range r.m.state.listings {
		if l.SellerID == sellerID && l.CardID == cardID && l.IsActive() {
			total += l.Quantity
		}
	}
	return total, nil
}

func (r *memListings) WithTx(tx pgx.Tx) listing.Repository { return r }

type memPurchases struct{ m *memStore }

func (r *memPurchases) Create(ctx context.Context, p *listing.Purchase) error {
	r.m.state.purchases = append(r.m.state.purchases, *p)
	return nil
}

func (r *memPurchases) GetByID(ctx context.Context, id uuid.UUID) (*listing.Purchase, error) {
	for _, p := range r.m.state.purchases {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, listing.ErrPurchaseNotFound{PurchaseID: id}
}

func (r *memPurchases) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*listing.Purchase, error) {
	out := []*listing.Purchase{}
	for _, p := range r.m.state.purchases {
		if p.ListingID == listingID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *memPurchases) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*listing.Purchase, error) {
	out := []*listing.Purchase{}
	for _, p := range r.m.state.purchases {
		if p.BuyerID == userID || p.SellerID == userID {
			p := p
			out = append(out, &p)
		}
	}
	return paginate(out, limit, offset), nil
}

func (r *memPurchases) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	all, _ := r.ListByUser(ctx, userID, len(r.m.state.purchases)+1, 0)
	return int64(len(all)), nil
}

func (r *memPurchases) WithTx(tx pgx.Tx) listing.PurchaseRepository { return r }

type memTrades struct{ m *memStore }

func (r *memTrades) Create(ctx context.Context, t *trade.Trade) error {
	row := *t
	row.Offers = nil
	r.m.state.trades[t.ID] = row
	return nil
}

func (r *memTrades) CreateOffer(ctx context.Context, o *trade.Offer) error {
	r.m.state.offers = append(r.m.state.offers, *o)
	return nil
}

func (r *memTrades) load(row trade.Trade) *trade.Trade {
	t := row
	t.Offers = nil
	for _, o := range r.m.state.offers {
		if o.TradeID == t.ID {
			o := o
			t.Offers = append(t.Offers, &o)
		}
	}
	return &t
}

func (r *memTrades) GetByID(ctx context.Context, id uuid.UUID) (*trade.Trade, error) {
	row, ok := r.m.state.trades[id]
	if !ok {
		return nil, trade.ErrTradeNotFound{TradeID: id}
	}
	return r.load(row), nil
}

func (r *memTrades) LockForUpdate(ctx context.Context, id uuid.UUID) (*trade.Trade, error) {
	return r.GetByID(ctx, id)
}

func (r *memTrades) UpdateStatus(ctx context.Context, t *trade.Trade) error {
	row, ok := r.m.state.trades[t.ID]
	if !ok {
		return trade.ErrTradeNotFound{TradeID: t.ID}
	}
	row.Status = t.Status
	row.UpdatedAt = t.UpdatedAt
	r.m.state.trades[t.ID] = row
	return nil
}

func (r *memTrades) ListPendingForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*trade.Trade, error) {
	out := []*trade.Trade{}
	for _, row := range r.m.state.trades {
		if row.Status == trade.StatusPending && (row.InitiatorID == userID || row.RecipientID == userID) {
			out = append(out, r.load(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (r *memTrades) CountPendingForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	all, _ := r.ListPendingForUser(ctx, userID, len(r.m.state.trades)+1, 0)
	return int64(len(all)), nil
}

func (r *memTrades) WithTx(tx pgx.Tx) trade.Repository { return r }

type memOutbox struct{ m *memStore }

func (r *memOutbox) Create(ctx context.Context, message *outbox.Message) error {
	if err := r.m.failOutboxCreate; err != nil {
		r.m.failOutboxCreate = nil
		return err
	}
	r.m.nextOutboxID++
	message.ID = r.m.nextOutboxID
	r.m.state.outbox = append(r.m.state.outbox, *message)
	return nil
}

func (r *memOutbox) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	out := []*outbox.Message{}
	for _, msg := range r.m.state.outbox {
		if msg.Status == shared.OutboxStatusPending {
			msg := msg
			out = append(out, &msg)
		}
	}
	return paginate(out, limit, 0), nil
}

func (r *memOutbox) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	for i := range r.m.state.outbox {
		if r.m.state.outbox[i].ID == id {
			r.m.state.outbox[i].Status = status
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *memOutbox) IncrementAttempts(ctx context.Context, id int64) error {
	for i := range r.m.state.outbox {
		if r.m.state.outbox[i].ID == id {
			r.m.state.outbox[i].Attempts++
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *memOutbox) WithTx(tx pgx.Tx) outbox.Repository { return r }

// memKeys is an in-memory KeyStore
type memKeys struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error

	// state of the context seen by the last Release
	releaseDeadline bool
	releaseCtxErr   error
}

func newMemKeys() *memKeys {
	return &memKeys{keys: make(map[string]time.Duration)}
}

func (k *memKeys) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return false, k.err
	}
	if _, ok := k.keys[key]; ok {
		return false, nil
	}
	k.keys[key] = ttl
	return true, nil
}

func (k *memKeys) Release(ctx context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, k.releaseDeadline = ctx.Deadline()
	k.releaseCtxErr = ctx.Err()
	delete(k.keys, key)
	return nil
}

func (k *memKeys) ttl(key string) (time.Duration, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	ttl, ok := k.keys[key]
	return ttl, ok
}

func (k *memKeys) has(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.keys[key]
	return ok
}

// stubCatalog returns the queued results in order, then repeats the last one
type stubCatalog struct {
	cards []*card.Metadata
	err   error
	calls int
}

func (c *stubCatalog) FetchRandomCard(ctx context.Context) (*card.Metadata, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.cards) == 0 {
		return nil, nil
	}
	i := c.calls - 1
	if i >= len(c.cards) {
		i = len(c.cards) - 1
	}
	return c.cards[i], nil
}
