package model

import "time"

// EventType represents the type of engine event published to the stream.
type EventType string

const (
	EventTypeConversationSaved EventType = "conversation_saved"
	EventTypePasteDetected     EventType = "paste_detected"
	EventTypeTransferCreated   EventType = "transfer_created"
	EventTypeTransferConsumed  EventType = "transfer_consumed"
)

// Event is an engine event: a conversation was saved, a paste was recognized,
// or a transfer slot changed hands.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	Platform       Platform  `json:"platform"`
	ConversationID string    `json:"conversation_id,omitempty"`
	TurnCount      int       `json:"turn_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
