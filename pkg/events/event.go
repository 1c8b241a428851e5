package events

import "time"

// Billing event codes published on the bus.
const (
	PaymentSucceeded = "PAYMENT_SUCCEEDED"
	PaymentFailed    = "PAYMENT_FAILED"
	CreditsRenewed   = "CREDITS_RENEWED"
	CreditsToppedUp  = "CREDITS_TOPPED_UP"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PAYMENT_SUCCEEDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
