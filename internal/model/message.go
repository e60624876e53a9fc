package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry represents one message in the conversation log.
type Entry struct {
	// Identity, assigned by the store at creation
	ID string `json:"id"`

	// Content
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Lifecycle
	CreatedAt time.Time `json:"created_at"`
	Streaming bool      `json:"streaming"`
	Failed    bool      `json:"failed"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SearchResult is an entry matching a search query with its transcript index.
type SearchResult struct {
	Index int   `json:"index"`
	Entry Entry `json:"entry"`
}

// SearchResponse is the response for a transcript search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
