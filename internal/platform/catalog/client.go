// Package catalog fetches card metadata from the Pokémon TCG API (v2).
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/poketrade-exchange/internal/config"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/shopspring/decimal"
)

const unknownType = "Unknown"

// Client draws random cards from the catalog
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxPage    int
	pageSize   int
	intN       func(n int) int
	logger     *slog.Logger
}

// NewClient creates a catalog client from cfg
func NewClient(logger *slog.Logger, cfg *config.CatalogConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxPage:    cfg.MaxPage,
		pageSize:   cfg.PageSize,
		intN:       rand.Intn,
		logger:     logger,
	}
}

type cardsPage struct {
	Data []apiCard `json:"data"`
}

type apiCard struct {
	Name       string   `json:"name"`
	Number     string   `json:"number"`
	HP         string   `json:"hp"`
	Types      []string `json:"types"`
	FlavorText string   `json:"flavorText"`
	Set        struct {
		Name string `json:"name"`
	} `json:"set"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	CardMarket *struct {
		Prices struct {
			AverageSellPrice *float64 `json:"averageSellPrice"`
		} `json:"prices"`
	} `json:"cardmarket"`
}

// FetchRandomCard picks a random page, then a random card of that page.
// An empty page yields (nil, nil).
func (c *Client) FetchRandomCard(ctx context.Context) (*card.Metadata, error) {
	page := c.intN(c.maxPage) + 1

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cards?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var body cardsPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	if len(body.Data) == 0 {
		c.logger.Debug("Catalog page was empty", "page", page)
		return nil, nil
	}

	picked := body.Data[c.intN(len(body.Data))]
	return picked.toMetadata(), nil
}

func (a apiCard) toMetadata() *card.Metadata {
	meta := &card.Metadata{
		Name:        a.Name,
		SetName:     a.Set.Name,
		Number:      a.Number,
		ImageURL:    a.Images.Large,
		PokemonType: unknownType,
		Text:        a.FlavorText,
	}
	if meta.ImageURL == "" {
		meta.ImageURL = a.Images.Small
	}
	if len(a.Types) > 0 {
		meta.PokemonType = a.Types[0]
	}
	// hp is a string in the API; non-numeric values are dropped
	if hp, err := strconv.Atoi(a.HP); err == nil && hp >= 0 {
		meta.HP = &hp
	}
	if a.CardMarket != nil && a.CardMarket.Prices.AverageSellPrice != nil {
		meta.MarketPrice = decimal.NewNullDecimal(decimal.NewFromFloat(*a.CardMarket.Prices.AverageSellPrice))
	}
	return meta
}
