package event

import (
	"time"

	"github.com/google/uuid"
)

// Event records one occurrence in an expense's approval lifecycle. Events
// are emitted by the workflow coordinator for audit logging; they carry the
// verdict reason strings verbatim.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	ExpenseID int64                  `json:"expense_id"`
	ActorID   int64                  `json:"actor_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// New creates an event with a generated ID and the current time.
func New(eventType Type, expenseID, actorID int64, payload map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ExpenseID: expenseID,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
