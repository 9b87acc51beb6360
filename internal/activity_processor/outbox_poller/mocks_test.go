package outbox_poller

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/poketrade-exchange/internal/domain/outbox"
	"github.com/poketrade-exchange/internal/domain/shared"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}, headers ...kafka.Header) error {
	args := m.Called(ctx, key, value, headers)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) Relay(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func pendingMessage(t *testing.T, id int64, attempts int) *outbox.Message {
	t.Helper()
	event := &shared.SettlementEvent{
		EventID:       uuid.New(),
		Type:          shared.EventTypeRewardGranted,
		ReferenceID:   uuid.New(),
		CorrelationID: "corr-outbox",
		Legs:          []shared.Leg{{ToUserID: uuid.New(), CardID: uuid.New(), Quantity: 1}},
		OccurredAt:    time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	msg, err := outbox.NewMessage(event)
	require.NoError(t, err)
	msg.ID = id
	msg.Attempts = attempts
	return msg
}

func brokenMessage(id int64) *outbox.Message {
	return &outbox.Message{
		ID:        id,
		EventID:   uuid.New(),
		EventType: shared.EventTypeRewardGranted,
		Payload:   json.RawMessage(`{"event_id":"not-a-uuid"}`),
		Status:    shared.OutboxStatusPending,
	}
}
