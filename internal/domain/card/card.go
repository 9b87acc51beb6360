// Package card holds catalog card metadata. Cards are identified for
// deduplication by their (name, set, number) triple.
package card

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyName   = errors.New("card name cannot be empty")
	ErrEmptySet    = errors.New("card set cannot be empty")
	ErrEmptyNumber = errors.New("card number cannot be empty")
	ErrNegativeHP  = errors.New("card hp cannot be negative")
)

// Metadata is what the catalog collaborator returns for a card.
type Metadata struct {
	Name        string              `json:"name"`
	SetName     string              `json:"set_name"`
	Number      string              `json:"card_number"`
	ImageURL    string              `json:"image_url"`
	PokemonType string              `json:"pokemon_type"`
	HP          *int                `json:"hp,omitempty"`
	Text        string              `json:"card_text"`
	MarketPrice decimal.NullDecimal `json:"market_price"`
}

// Card is a catalog entry stored locally.
type Card struct {
	ID uuid.UUID `json:"id"`
	Metadata
	UpdatedAt time.Time `json:"updated_at"`
}

// Key is the natural identity of a card in the catalog.
type Key struct {
	Name    string
	SetName string
	Number  string
}

// NewCard validates metadata and builds a card with a fresh id. Whitespace
// around the identifying fields is dropped so equal cards map to one key.
func NewCard(meta Metadata, now time.Time) (*Card, error) {
	meta.Name = strings.TrimSpace(meta.Name)
	meta.SetName = strings.TrimSpace(meta.SetName)
	meta.Number = strings.TrimSpace(meta.Number)

	if meta.Name == "" {
		return nil, ErrEmptyName
	}
	if meta.SetName == "" {
		return nil, ErrEmptySet
	}
	if meta.Number == "" {
		return nil, ErrEmptyNumber
	}
	if meta.HP != nil && *meta.HP < 0 {
		return nil, ErrNegativeHP
	}

	return &Card{
		ID:        uuid.New(),
		Metadata:  meta,
		UpdatedAt: now,
	}, nil
}

// Key returns the dedup key of the card.
func (c *Card) Key() Key {
	return Key{Name: c.Name, SetName: c.SetName, Number: c.Number}
}
