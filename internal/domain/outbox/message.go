package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Message stores a settlement event until it has been relayed to Kafka
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	EventType     shared.EventType    `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage serializes the event into a PENDING outbox message.
func NewMessage(event *shared.SettlementEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   event.EventID,
		EventType: event.Type,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: event.OccurredAt,
	}, nil
}

// Event decodes the settlement event from the payload
func (m *Message) Event() (*shared.SettlementEvent, error) {
	var event shared.SettlementEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
