package model

import (
	"time"
)

// EventType represents the type of conversation event.
type EventType string

const (
	EventTypeAppended  EventType = "entry_appended"
	EventTypePatched   EventType = "entry_patched"
	EventTypeDiscarded EventType = "entry_discarded"
	EventTypeStatus    EventType = "status"
	EventTypeCleared   EventType = "cleared"
)

// Event describes one mutation of a conversation, in mutation order.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Sequence       uint64    `json:"sequence"`
	Entry          *Entry    `json:"entry,omitempty"`
	EntryID        string    `json:"entry_id,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
