package nats

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/weather-chat/internal/model"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
	"github.com/capitalize-ai/weather-chat/pkg/metrics"
)

// DefaultSubjectPrefix is the prefix for all conversation subjects.
const DefaultSubjectPrefix = "chat"

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher mirrors conversation events onto core NATS subjects. It never
// blocks the conversation: failures are logged and counted.
type Publisher struct {
	conn   Conn
	prefix string
	logger *logger.Logger
}

// NewPublisher creates a publisher on conn. An empty prefix uses
// DefaultSubjectPrefix.
func NewPublisher(conn Conn, prefix string, log *logger.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		logger: log,
	}
}

// EventSubject returns the subject for an event.
func EventSubject(prefix, conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", prefix, conversationID, eventType)
}

// ConversationFilter returns the wildcard subject for all events of a conversation.
func ConversationFilter(prefix, conversationID string) string {
	return fmt.Sprintf("%s.%s.>", prefix, conversationID)
}

// Publish implements events.Sink.
func (p *Publisher) Publish(event model.Event) {
	subject := EventSubject(p.prefix, event.ConversationID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		metrics.NATSPublishFailures.Inc()
		p.logger.Error("failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		metrics.NATSPublishFailures.Inc()
		p.logger.Warn("failed to publish event",
			zap.String("subject", subject),
			zap.Uint64("sequence", event.Sequence),
			zap.Error(err),
		)
	}
}
