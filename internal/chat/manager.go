package chat

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/weather-chat/internal/agent"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
	"github.com/capitalize-ai/weather-chat/pkg/metrics"
)

// Manager holds the live conversations of this process. Nothing outlives
// the process.
type Manager struct {
	agent  agent.Client
	logger *logger.Logger
	opts   []Option

	conversations map[string]*Conversation
	mu            sync.RWMutex
}

// NewManager creates a conversation manager. opts are applied to every
// conversation it creates.
func NewManager(client agent.Client, log *logger.Logger, opts ...Option) *Manager {
	return &Manager{
		agent:         client,
		logger:        log,
		opts:          opts,
		conversations: make(map[string]*Conversation),
	}
}

// Create starts a new, empty conversation.
func (m *Manager) Create() *Conversation {
	id := uuid.Must(uuid.NewV7()).String()

	opts := append([]Option{WithLogger(m.logger.With(zap.String("conversation_id", id)))}, m.opts...)
	conv := NewConversation(id, m.agent, opts...)

	m.mu.Lock()
	m.conversations[id] = conv
	m.mu.Unlock()

	metrics.ConversationsActive.Inc()
	m.logger.Info("conversation created", zap.String("conversation_id", id))

	return conv
}

// Get retrieves a conversation by ID.
func (m *Manager) Get(id string) (*Conversation, error) {
	m.mu.RLock()
	conv, exists := m.conversations[id]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	return conv, nil
}

// List returns all conversations in creation order.
func (m *Manager) List() []*Conversation {
	m.mu.RLock()
	convs := make([]*Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		convs = append(convs, conv)
	}
	m.mu.RUnlock()

	// UUIDv7 ids sort by creation time.
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].ID() < convs[j].ID()
	})
	return convs
}

// Delete tears a conversation down and forgets it.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	conv, exists := m.conversations[id]
	delete(m.conversations, id)
	m.mu.Unlock()

	if !exists {
		return ErrNotFound
	}

	conv.Close()
	metrics.ConversationsActive.Dec()
	m.logger.Info("conversation deleted", zap.String("conversation_id", id))

	return nil
}

// Close tears every conversation down.
func (m *Manager) Close() {
	m.mu.Lock()
	convs := m.conversations
	m.conversations = make(map[string]*Conversation)
	m.mu.Unlock()

	for _, conv := range convs {
		conv.Close()
		metrics.ConversationsActive.Dec()
	}
}
