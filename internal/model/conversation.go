// Package model defines data structures for the chat gateway.
package model

import (
	"time"
)

// State is the conversation state owned by the message store.
type State struct {
	Entries    []Entry `json:"entries"`
	Loading    bool    `json:"loading"`
	InFlightID string  `json:"in_flight_id,omitempty"`
	LastError  string  `json:"last_error,omitempty"`

	// Sequence of the last event applied to this state
	Sequence uint64 `json:"sequence"`
}

// Typing reports that a request was sent but no assistant entry is
// accumulating content yet.
func (s State) Typing() bool {
	return s.Loading && s.InFlightID == ""
}

// Status returns the non-entry part of the state.
func (s State) Status() Status {
	return Status{
		Loading:    s.Loading,
		InFlightID: s.InFlightID,
		LastError:  s.LastError,
		Typing:     s.Typing(),
	}
}

// Status is the busy/in-flight/error part of a conversation.
type Status struct {
	Loading    bool   `json:"loading"`
	InFlightID string `json:"in_flight_id,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	Typing     bool   `json:"typing"`
}

// Conversation is the API representation of a conversation.
type Conversation struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	Status       Status    `json:"status"`
	Sequence     uint64    `json:"sequence"`
	Entries      []Entry   `json:"entries,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
