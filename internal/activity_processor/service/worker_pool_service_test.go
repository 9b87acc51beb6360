package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/poketrade-exchange/internal/domain/shared"
)

type MockRecordingService struct {
	mock.Mock
}

func (m *MockRecordingService) RecordEvent(ctx context.Context, event *shared.SettlementEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestWorkerPoolRecordingService_RecordEvent(t *testing.T) {
	event := rewardEvent()
	matchEvent := mock.MatchedBy(func(e *shared.SettlementEvent) bool { return e.EventID == event.EventID })

	tests := []struct {
		name    string
		result  error
		wantErr string
	}{
		{name: "success"},
		{name: "base error is returned", result: errors.New("record failed"), wantErr: "record failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &MockRecordingService{}
			base.On("RecordEvent", mock.Anything, matchEvent).Return(tt.result).Once()

			svc, err := NewWorkerPoolRecordingService(base, WorkerPoolConfig{Size: 2}, newTestLogger())
			require.NoError(t, err)
			defer svc.Shutdown()

			err = svc.RecordEvent(context.Background(), event)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			base.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolRecordingService_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	base := &MockRecordingService{}
	base.On("RecordEvent", mock.Anything, mock.Anything).Run(func(mock.Arguments) { <-release }).Return(nil)

	svc, err := NewWorkerPoolRecordingService(base, WorkerPoolConfig{Size: 1}, newTestLogger())
	require.NoError(t, err)
	defer svc.Shutdown()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, svc.RecordEvent(ctx, rewardEvent()), context.DeadlineExceeded)
}

func TestWorkerPoolRecordingService_Concurrency(t *testing.T) {
	var processed atomic.Int32
	base := &MockRecordingService{}
	base.On("RecordEvent", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		time.Sleep(5 * time.Millisecond)
		processed.Add(1)
	}).Return(nil)

	svc, err := NewWorkerPoolRecordingService(base, WorkerPoolConfig{Size: 5}, newTestLogger())
	require.NoError(t, err)
	defer svc.Shutdown()

	const numEvents = 20
	var wg sync.WaitGroup
	wg.Add(numEvents)
	for i := 0; i < numEvents; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RecordEvent(context.Background(), rewardEvent()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(numEvents), processed.Load())
	assert.Equal(t, 5, svc.Capacity())
}

func TestNewWorkerPoolRecordingService_InvalidSize(t *testing.T) {
	_, err := NewWorkerPoolRecordingService(&MockRecordingService{}, WorkerPoolConfig{Size: 0}, newTestLogger())
	assert.Error(t, err)
}
