package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/api_gateway/middleware"
	"github.com/poketrade-exchange/internal/domain/activity"
	"github.com/poketrade-exchange/internal/domain/card"
	"github.com/poketrade-exchange/internal/domain/inventory"
	"github.com/poketrade-exchange/internal/domain/listing"
	"github.com/poketrade-exchange/internal/domain/trade"
	"github.com/poketrade-exchange/internal/settlement"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, req settlement.CreateListingRequest) (*listing.Listing, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingService) CancelListing(ctx context.Context, listingID, actorID uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, listingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingService) GetListing(ctx context.Context, listingID uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingService) ListActive(ctx context.Context, page, perPage int) ([]*listing.Listing, int64, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*listing.Listing), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingService) ListBySeller(ctx context.Context, sellerID uuid.UUID, page, perPage int) ([]*listing.Listing, int64, error) {
	args := m.Called(ctx, sellerID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*listing.Listing), args.Get(1).(int64), args.Error(2)
}

type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) Purchase(ctx context.Context, req settlement.PurchaseRequest) (*settlement.PurchaseResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.PurchaseResult), args.Error(1)
}

type MockTradeService struct {
	mock.Mock
}

func (m *MockTradeService) trade(args mock.Arguments) (*trade.Trade, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Trade), args.Error(1)
}

func (m *MockTradeService) ProposeTrade(ctx context.Context, req settlement.ProposeTradeRequest) (*trade.Trade, error) {
	return m.trade(m.Called(ctx, req))
}

func (m *MockTradeService) AddOffer(ctx context.Context, tradeID, actorID, cardID uuid.UUID, quantity int) (*trade.Offer, error) {
	args := m.Called(ctx, tradeID, actorID, cardID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Offer), args.Error(1)
}

func (m *MockTradeService) AcceptTrade(ctx context.Context, req settlement.AcceptTradeRequest) (*trade.Trade, error) {
	return m.trade(m.Called(ctx, req))
}

func (m *MockTradeService) RejectTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error) {
	return m.trade(m.Called(ctx, tradeID, actorID))
}

func (m *MockTradeService) CancelTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error) {
	return m.trade(m.Called(ctx, tradeID, actorID))
}

func (m *MockTradeService) GetTrade(ctx context.Context, tradeID, actorID uuid.UUID) (*trade.Trade, error) {
	return m.trade(m.Called(ctx, tradeID, actorID))
}

func (m *MockTradeService) ListPending(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*trade.Trade, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*trade.Trade), args.Get(1).(int64), args.Error(2)
}

type MockRewardService struct {
	mock.Mock
}

func (m *MockRewardService) GrantSignupReward(ctx context.Context, userID uuid.UUID, correlationID string) (*settlement.RewardResult, error) {
	args := m.Called(ctx, userID, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.RewardResult), args.Error(1)
}

func (m *MockRewardService) GrantDailyReward(ctx context.Context, userID uuid.UUID, correlationID string) (*settlement.RewardResult, error) {
	args := m.Called(ctx, userID, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.RewardResult), args.Error(1)
}

type MockCollectionService struct {
	mock.Mock
}

func (m *MockCollectionService) GetCard(ctx context.Context, cardID uuid.UUID) (*card.Card, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.Card), args.Error(1)
}

func (m *MockCollectionService) GetCollection(ctx context.Context, userID uuid.UUID) ([]*inventory.Holding, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.Holding), args.Error(1)
}

func (m *MockCollectionService) GetPurchases(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*listing.Purchase, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*listing.Purchase), args.Get(1).(int64), args.Error(2)
}

func (m *MockCollectionService) GetActivity(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*activity.Entry, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*activity.Entry), args.Get(1).(int64), args.Error(2)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

// doRequest sends a JSON request as the given user (uuid.Nil sends none)
func doRequest(t *testing.T, router *gin.Engine, method, path string, userID uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doRequestWithHeader(t, router, method, path, userID, body, "", "")
}

func doRequestWithHeader(t *testing.T, router *gin.Engine, method, path string, userID uuid.UUID, body interface{}, header, value string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		jsonBody, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req.Header.Set(middleware.UserIDHeader, userID.String())
	}
	if header != "" {
		req.Header.Set(header, value)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the envelope and its data field into out
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()
	var topLevelResponse Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse), "Failed to unmarshal top-level response")

	if out != nil {
		require.NotNil(t, topLevelResponse.Data, "'data' field should not be nil")
		dataBytes, err := json.Marshal(topLevelResponse.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(dataBytes, out))
	}
	return topLevelResponse
}
