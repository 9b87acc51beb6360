package components

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/poketrade-exchange/internal/domain/activity"
	"github.com/poketrade-exchange/internal/domain/shared"
)

type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Record(ctx context.Context, entries []*activity.Entry) (int, error) {
	args := m.Called(ctx, entries)
	return args.Int(0), args.Error(1)
}

func (m *MockActivityRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*activity.Entry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*activity.Entry), args.Error(1)
}

func (m *MockActivityRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockActivityRepo) CountForEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(int64), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func tradeEvent() *shared.SettlementEvent {
	alice, bob := uuid.New(), uuid.New()
	return &shared.SettlementEvent{
		EventID:       uuid.New(),
		Type:          shared.EventTypeTradeAccepted,
		ReferenceID:   uuid.New(),
		CorrelationID: "corr-trade",
		Legs: []shared.Leg{
			{FromUserID: &alice, ToUserID: bob, CardID: uuid.New(), Quantity: 1},
			{FromUserID: &bob, ToUserID: alice, CardID: uuid.New(), Quantity: 2},
		},
		OccurredAt: testNow.Add(-time.Minute),
	}
}
