package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/shared"
	"github.com/poketrade-exchange/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offers(in ...trade.OfferInput) []trade.OfferInput { return in }

func TestTradeService_CharmanderSquirtleScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	charmander := h.card("Charmander")
	squirtle := h.card("Squirtle")
	a := h.user(charmander.ID, 1)
	b := h.user(squirtle.ID, 2)

	tr, err := h.trades.ProposeTrade(ctx, ProposeTradeRequest{
		InitiatorID: a,
		RecipientID: b,
		Message:     "fire for water",
		Offers: offers(
			trade.OfferInput{Role: trade.RoleInitiator, CardID: charmander.ID, Quantity: 1},
			trade.OfferInput{Role: trade.RoleRecipient, CardID: squirtle.ID, Quantity: 2},
		),
	})
	require.NoError(t, err)
	assert.Equal(t, trade.StatusPending, tr.Status)
	assert.Len(t, h.store.state.offers, 2)

	accepted, err := h.trades.AcceptTrade(ctx, AcceptTradeRequest{TradeID: tr.ID, ActorID: b})
	require.NoError(t, err)
	assert.Equal(t, trade.StatusAccepted, accepted.Status)
	assert.Equal(t, trade.StatusAccepted, h.store.state.trades[tr.ID].Status)

	assert.Equal(t, 0, h.store.quantity(a, charmander.ID))
	assert.Equal(t, 2, h.store.quantity(a, squirtle.ID))
	assert.Equal(t, 0, h.store.quantity(b, squirtle.ID))
	assert.Equal(t, 1, h.store.quantity(b, charmander.ID))

	events := h.store.events()
	require.Len(t, events, 1)
	assert.Equal(t, shared.EventTypeTradeAccepted, events[0].Type)
	assert.Equal(t, tr.ID, events[0].ReferenceID)
	assert.Len(t, events[0].Legs, 2)
}

func TestTradeService_AcceptIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	charmander := h.card("Charmander")
	squirtle := h.card("Squirtle")

	// legs run in sender order, so the initiator's leg succeeds before the
	// recipient's stale leg fails
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("ffffffff-0000-0000-0000-00000000000b")
	h.store.seedQuantity(a, charmander.ID, 1)
	h.store.seedQuantity(b, squirtle.ID, 2)

	tr, err := h.trades.ProposeTrade(ctx, ProposeTradeRequest{
		InitiatorID: a,
		RecipientID: b,
		Offers: offers(
			trade.OfferInput{Role: trade.RoleInitiator, CardID: charmander.ID, Quantity: 1},
			trade.OfferInput{Role: trade.RoleRecipient, CardID: squirtle.ID, Quantity: 2},
		),
	})
	require.NoError(t, err)

	// b's balance drops after the offer was made
	require.NoError(t, h.ledger.Transfer(ctx, b, uuid.New(), squirtle.ID, 1))

	_, err = h.trades.AcceptTrade(ctx, AcceptTradeRequest{TradeID: tr.ID, ActorID: b})
	assert.ErrorIs(t, err, shared.ErrInsufficientQuantity)

	assert.Equal(t, trade.StatusPending, h.store.state.trades[tr.ID].Status)
	assert.Equal(t, 1, h.store.quantity(a, charmander.ID))
	assert.Equal(t, 0, h.store.quantity(b, charmander.ID))
	assert.Equal(t, 1, h.store.quantity(b, squirtle.ID))
	assert.Equal(t, 0, h.store.quantity(a, squirtle.ID))
	assert.Empty(t, h.store.state.outbox)
}

func TestTradeService_ProposeValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	charmander := h.card("Charmander")
	a := h.user(charmander.ID, 2)
	b := uuid.New()

	testCases := []struct {
		name    string
		req     ProposeTradeRequest
		wantErr error
	}{
		{
			name:    "NoOffers",
			req:     ProposeTradeRequest{InitiatorID: a, RecipientID: b},
			wantErr: shared.ErrInvalidInput,
		},
		{
			name: "SelfTrade",
			req: ProposeTradeRequest{InitiatorID: a, RecipientID: a, Offers: offers(
				trade.OfferInput{Role: trade.RoleInitiator, CardID: charmander.ID, Quantity: 1})},
			wantErr: shared.ErrInvalidInput,
		},
		{
			name: "UnknownRole",
			req: ProposeTradeRequest{InitiatorID: a, RecipientID: b, Offers: offers(
				trade.OfferInput{Role: "bystander", CardID: charmander.ID, Quantity: 1})},
			wantErr: shared.ErrInvalidInput,
		},
		{
			name: "ZeroQuantity",
			req: ProposeTradeRequest{InitiatorID: a, RecipientID: b, Offers: offers(
				trade.OfferInput{Role: trade.RoleInitiator, CardID: charmander.ID, Quantity: 0})},
			wantErr: shared.ErrInvalidQuantity,
		},
		{
			name: "UnknownCard",
			req: ProposeTradeRequest{InitiatorID: a, RecipientID: b, Offers: offers(
				trade.OfferInput{Role: trade.RoleInitiator, CardID: uuid.New(), Quantity: 1})},
			wantErr: shared.ErrNotFound,
		},
		{
			name: "SummedOffersExceedBalance",
			req: ProposeTradeRequest{InitiatorID: a, RecipientID: b, Offers: offers(
				trade.OfferInput{Role: trade.RoleInitiator, CardID: charmander.ID, Quantity: 2},
				trade.OfferInput{Role: trade.RoleInitiator, CardID: charmander.ID, Quantity: 1})},
			wantErr: shared.ErrInsufficientQuantity,
		},
		{
			name: "RecipientLacksCard",
			req: ProposeTradeRequest{InitiatorID: a, RecipientID: b, Offers: offers(
				trade.OfferInput{Role: trade.RoleRecipient, CardID: charmander.ID, Quantity: 1})},
			wantErr: shared.ErrInsufficientQuantity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := h.trades.ProposeTrade(ctx, tc.req)
			assert.Nil(t, tr)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, h.store.state.trades)
			assert.Empty(t, h.store.state.offers)
		})
	}
}

func TestTradeService_ProposeRespectsReservationHold(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	charmander := h.card("Charmander")
	a := h.user(charmander.ID, 2)

	_, err := h.listings.CreateListing(ctx, listReq(a, charmander.ID, 2))
	require.NoError(t, err)

	_, err = h.trades.ProposeTrade(ctx, ProposeTradeRequest{InitiatorID: a, RecipientID: uuid.New(), Offers: offers(
		trade.OfferInput{Role: trade.RoleInitiator, CardID: charmander.ID, Quantity: 1})})
	assert.ErrorIs(t, err, shared.ErrInsufficientQuantity)
}

func proposeSimple(t *testing.T, h *harness) (tr *trade.Trade, a, b uuid.UUID, cardID uuid.UUID) {
	t.Helper()
	c := h.card("Charmander")
	a = h.user(c.ID, 3)
	b = h.user(c.ID, 3)
	tr, err := h.trades.ProposeTrade(context.Background(), ProposeTradeRequest{InitiatorID: a, RecipientID: b, Offers: offers(
		trade.OfferInput{Role: trade.RoleInitiator, CardID: c.ID, Quantity: 1})})
	require.NoError(t, err)
	return tr, a, b, c.ID
}

func TestTradeService_AddOffer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	tr, a, b, cardID := proposeSimple(t, h)

	t.Run("party adds offer", func(t *testing.T) {
		o, err := h.trades.AddOffer(ctx, tr.ID, b, cardID, 2)
		require.NoError(t, err)
		assert.Equal(t, b, o.UserID)
		assert.Len(t, h.store.state.offers, 2)
	})

	t.Run("counts earlier offers of the same card", func(t *testing.T) {
		_, err := h.trades.AddOffer(ctx, tr.ID, a, cardID, 3)
		assert.ErrorIs(t, err, shared.ErrInsufficientQuantity)

		_, err = h.trades.AddOffer(ctx, tr.ID, a, cardID, 2)
		assert.NoError(t, err)
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := h.trades.AddOffer(ctx, tr.ID, uuid.New(), cardID, 1)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("unknown card", func(t *testing.T) {
		_, err := h.trades.AddOffer(ctx, tr.ID, a, uuid.New(), 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("terminal trade", func(t *testing.T) {
		_, err := h.trades.CancelTrade(ctx, tr.ID, a)
		require.NoError(t, err)

		_, err = h.trades.AddOffer(ctx, tr.ID, b, cardID, 1)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestTradeService_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("only recipient accepts", func(t *testing.T) {
		h := newHarness(t, true)
		tr, a, _, _ := proposeSimple(t, h)

		_, err := h.trades.AcceptTrade(ctx, AcceptTradeRequest{TradeID: tr.ID, ActorID: a})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
		assert.Equal(t, trade.StatusPending, h.store.state.trades[tr.ID].Status)
	})

	t.Run("only recipient rejects", func(t *testing.T) {
		h := newHarness(t, true)
		tr, a, b, cardID := proposeSimple(t, h)

		_, err := h.trades.RejectTrade(ctx, tr.ID, a)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)

		rejected, err := h.trades.RejectTrade(ctx, tr.ID, b)
		require.NoError(t, err)
		assert.Equal(t, trade.StatusRejected, rejected.Status)
		assert.Equal(t, 3, h.store.quantity(a, cardID), "reject has no ledger effect")
	})

	t.Run("only initiator cancels", func(t *testing.T) {
		h := newHarness(t, true)
		tr, a, b, _ := proposeSimple(t, h)

		_, err := h.trades.CancelTrade(ctx, tr.ID, b)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)

		cancelled, err := h.trades.CancelTrade(ctx, tr.ID, a)
		require.NoError(t, err)
		assert.Equal(t, trade.StatusCancelled, cancelled.Status)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		h := newHarness(t, true)
		tr, a, b, cardID := proposeSimple(t, h)

		_, err := h.trades.AcceptTrade(ctx, AcceptTradeRequest{TradeID: tr.ID, ActorID: b})
		require.NoError(t, err)

		_, err = h.trades.AcceptTrade(ctx, AcceptTradeRequest{TradeID: tr.ID, ActorID: b})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		_, err = h.trades.RejectTrade(ctx, tr.ID, b)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		_, err = h.trades.CancelTrade(ctx, tr.ID, a)
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		assert.Equal(t, 2, h.store.quantity(a, cardID))
		assert.Equal(t, 4, h.store.quantity(b, cardID))
	})

	t.Run("missing trade", func(t *testing.T) {
		h := newHarness(t, true)
		_, err := h.trades.AcceptTrade(ctx, AcceptTradeRequest{TradeID: uuid.New(), ActorID: uuid.New()})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestTradeService_AcceptIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	tr, _, b, _ := proposeSimple(t, h)

	req := AcceptTradeRequest{TradeID: tr.ID, ActorID: b, IdempotencyKey: "accept-1"}
	_, err := h.trades.AcceptTrade(ctx, req)
	require.NoError(t, err)

	_, err = h.trades.AcceptTrade(ctx, req)
	assert.ErrorIs(t, err, shared.ErrDuplicateRequest)
}

func TestTradeService_Queries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	tr, a, b, _ := proposeSimple(t, h)

	got, err := h.trades.GetTrade(ctx, tr.ID, b)
	require.NoError(t, err)
	assert.Len(t, got.Offers, 1)

	_, err = h.trades.GetTrade(ctx, tr.ID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	pending, total, err := h.trades.ListPending(ctx, a, 1, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, int64(1), total)

	_, err = h.trades.CancelTrade(ctx, tr.ID, a)
	require.NoError(t, err)

	pending, total, err = h.trades.ListPending(ctx, b, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Zero(t, total)
}
