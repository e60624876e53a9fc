// Package agent provides the transport to the remote weather agent.
package agent

import (
	"context"
	"fmt"
	"io"

	"github.com/capitalize-ai/weather-chat/internal/model"
)

// ChatMessage is one history item sent to the agent.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of a streaming agent call.
type Request struct {
	Messages       []ChatMessage  `json:"messages"`
	RunID          string         `json:"runId"`
	MaxRetries     int            `json:"maxRetries"`
	MaxSteps       int            `json:"maxSteps"`
	Temperature    float64        `json:"temperature"`
	TopP           float64        `json:"topP"`
	RuntimeContext map[string]any `json:"runtimeContext"`
	ThreadID       string         `json:"threadId"`
	ResourceID     string         `json:"resourceId"`
}

// Settings are the per-deployment agent parameters.
type Settings struct {
	Endpoint    string
	RunID       string
	ResourceID  string
	ThreadID    string
	MaxRetries  int
	MaxSteps    int
	Temperature float64
	TopP        float64
}

// Client is the interface for agent transports.
type Client interface {
	// Open sends the conversation and returns the streaming response body.
	// The body is closed by the caller; cancelling ctx aborts the read.
	Open(ctx context.Context, messages []ChatMessage) (io.ReadCloser, error)

	// Name returns the agent name.
	Name() string
}

// StatusError is returned when the agent answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// History maps conversation entries to agent messages. Any role other than
// assistant is sent as user.
func History(entries []model.Entry) []ChatMessage {
	messages := make([]ChatMessage, 0, len(entries)+1)
	for _, e := range entries {
		role := string(model.RoleUser)
		if e.Role == model.RoleAssistant {
			role = string(model.RoleAssistant)
		}
		messages = append(messages, ChatMessage{Role: role, Content: e.Content})
	}
	return messages
}
