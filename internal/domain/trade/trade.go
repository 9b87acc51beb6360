// Package trade models peer-to-peer trade negotiation: a trade between an
// initiator and a recipient carries offers from either side and is settled
// all at once when the recipient accepts.
package trade

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Status is the negotiation state of a trade
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// Role names which party of the trade an offer comes from
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleRecipient Role = "recipient"
)

// Trade is a proposal to exchange cards between two users.
type Trade struct {
	ID          uuid.UUID `json:"id"`
	InitiatorID uuid.UUID `json:"initiator_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	Offers      []*Offer  `json:"offers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Offer is one card and quantity a party puts into a trade.
type Offer struct {
	ID        uuid.UUID `json:"id"`
	TradeID   uuid.UUID `json:"trade_id"`
	UserID    uuid.UUID `json:"user_id"`
	CardID    uuid.UUID `json:"card_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// OfferInput is the structured form of an offer in a trade proposal.
type OfferInput struct {
	Role     Role      `json:"user_role"`
	CardID   uuid.UUID `json:"card_id"`
	Quantity int       `json:"quantity"`
}

// Validate checks a single offer input.
func (in OfferInput) Validate() error {
	if in.Role != RoleInitiator && in.Role != RoleRecipient {
		return fmt.Errorf("%w: unknown offer role %q", shared.ErrInvalidInput, in.Role)
	}
	if in.CardID == uuid.Nil {
		return fmt.Errorf("%w: offer card is required", shared.ErrInvalidInput)
	}
	if in.Quantity < 1 {
		return fmt.Errorf("%w: offer quantity %d", shared.ErrInvalidQuantity, in.Quantity)
	}
	return nil
}

// NewTrade validates the whole proposal and builds a PENDING trade with its
// offers. Nothing is built if any input is invalid. Balances are not checked here.
func NewTrade(initiatorID, recipientID uuid.UUID, message string, inputs []OfferInput, now time.Time) (*Trade, error) {
	if initiatorID == uuid.Nil || recipientID == uuid.Nil {
		return nil, fmt.Errorf("%w: both trade parties are required", shared.ErrInvalidInput)
	}
	if initiatorID == recipientID {
		return nil, fmt.Errorf("%w: cannot trade with yourself", shared.ErrInvalidInput)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: a trade needs at least one offer", shared.ErrInvalidInput)
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("offer %d: %w", i, err)
		}
	}

	t := &Trade{
		ID:          uuid.New(),
		InitiatorID: initiatorID,
		RecipientID: recipientID,
		Status:      StatusPending,
		Message:     message,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, in := range inputs {
		userID := initiatorID
		if in.Role == RoleRecipient {
			userID = recipientID
		}
		t.Offers = append(t.Offers, t.newOffer(userID, in.CardID, in.Quantity, now))
	}
	return t, nil
}

func (t *Trade) newOffer(userID, cardID uuid.UUID, quantity int, now time.Time) *Offer {
	return &Offer{
		ID:        uuid.New(),
		TradeID:   t.ID,
		UserID:    userID,
		CardID:    cardID,
		Quantity:  quantity,
		CreatedAt: now,
	}
}

// IsParty reports whether the user is the initiator or the recipient.
func (t *Trade) IsParty(userID uuid.UUID) bool {
	return userID == t.InitiatorID || userID == t.RecipientID
}

// Counterparty returns the other party of the trade.
func (t *Trade) Counterparty(userID uuid.UUID) (uuid.UUID, error) {
	switch userID {
	case t.InitiatorID:
		return t.RecipientID, nil
	case t.RecipientID:
		return t.InitiatorID, nil
	}
	return uuid.Nil, ErrNotPermitted{TradeID: t.ID, ActorID: userID, Action: "take part in"}
}

// AttachOffer adds an offer from the actor to a PENDING trade.
func (t *Trade) AttachOffer(actorID, cardID uuid.UUID, quantity int, now time.Time) (*Offer, error) {
	if !t.IsParty(actorID) {
		return nil, ErrNotPermitted{TradeID: t.ID, ActorID: actorID, Action: "add offers to"}
	}
	if t.Status != StatusPending {
		return nil, ErrTradeNotPending{TradeID: t.ID, Status: t.Status}
	}
	if cardID == uuid.Nil {
		return nil, fmt.Errorf("%w: offer card is required", shared.ErrInvalidInput)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: offer quantity %d", shared.ErrInvalidQuantity, quantity)
	}

	o := t.newOffer(actorID, cardID, quantity, now)
	t.Offers = append(t.Offers, o)
	t.UpdatedAt = now
	return o, nil
}

// Accept moves a PENDING trade to ACCEPTED. Only the recipient may accept.
// The ledger transfers are the caller's responsibility.
func (t *Trade) Accept(actorID uuid.UUID, now time.Time) error {
	return t.transition(actorID, t.RecipientID, "accept", StatusAccepted, now)
}

// Reject moves a PENDING trade to REJECTED. Only the recipient may reject.
func (t *Trade) Reject(actorID uuid.UUID, now time.Time) error {
	return t.transition(actorID, t.RecipientID, "reject", StatusRejected, now)
}

// Cancel moves a PENDING trade to CANCELLED. Only the initiator may cancel.
func (t *Trade) Cancel(actorID uuid.UUID, now time.Time) error {
	return t.transition(actorID, t.InitiatorID, "cancel", StatusCancelled, now)
}

func (t *Trade) transition(actorID, allowed uuid.UUID, action string, to Status, now time.Time) error {
	if actorID != allowed {
		return ErrNotPermitted{TradeID: t.ID, ActorID: actorID, Action: action}
	}
	if t.Status != StatusPending {
		return ErrTradeNotPending{TradeID: t.ID, Status: t.Status}
	}
	t.Status = to
	t.UpdatedAt = now
	return nil
}

// OfferedQuantity sums what the user has offered of the card in this trade.
func (t *Trade) OfferedQuantity(userID, cardID uuid.UUID) int {
	total := 0
	for _, o := range t.Offers {
		if o.UserID == userID && o.CardID == cardID {
			total += o.Quantity
		}
	}
	return total
}

// Legs aggregates the offers into one transfer per (sender, card) towards the
// counterparty, ordered by sender then card so locks are taken in a stable order.
func (t *Trade) Legs() []shared.Leg {
	type key struct{ user, card uuid.UUID }
	totals := make(map[key]int)
	var order []key
	for _, o := range t.Offers {
		k := key{o.UserID, o.CardID}
		if _, seen := totals[k]; !seen {
			order = append(order, k)
		}
		totals[k] += o.Quantity
	}

	sort.Slice(order, func(i, j int) bool {
		if c := bytes.Compare(order[i].user[:], order[j].user[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(order[i].card[:], order[j].card[:]) < 0
	})

	legs := make([]shared.Leg, 0, len(order))
	for _, k := range order {
		from := k.user
		to, _ := t.Counterparty(from)
		legs = append(legs, shared.Leg{
			FromUserID: &from,
			ToUserID:   to,
			CardID:     k.card,
			Quantity:   totals[k],
		})
	}
	return legs
}
