package shared

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// EventType identifies what kind of settlement produced an event
type EventType string

const (
	EventTypePurchaseSettled EventType = "PURCHASE_SETTLED"
	EventTypeTradeAccepted   EventType = "TRADE_ACCEPTED"
	EventTypeRewardGranted   EventType = "REWARD_GRANTED"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypePurchaseSettled, EventTypeTradeAccepted, EventTypeRewardGranted:
		return true
	}
	return false
}
