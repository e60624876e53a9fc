// Package chat coordinates sending messages to the agent and reconciling
// the streamed reply into the conversation log.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/weather-chat/internal/agent"
	"github.com/capitalize-ai/weather-chat/internal/events"
	"github.com/capitalize-ai/weather-chat/internal/model"
	"github.com/capitalize-ai/weather-chat/internal/store"
	"github.com/capitalize-ai/weather-chat/internal/stream"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
	"github.com/capitalize-ai/weather-chat/pkg/metrics"
	"github.com/capitalize-ai/weather-chat/pkg/tracing"
)

var (
	ErrEmptyMessage = errors.New("message cannot be empty")
	ErrBusy         = errors.New("a message is already in flight")
	ErrClosed       = errors.New("conversation is closed")
	ErrNotFound     = errors.New("conversation not found")
)

// NoResponse replaces an empty successful reply.
const NoResponse = "No response received"

const errorPrefix = "Error: "

// Send outcomes, used as metric labels.
const (
	outcomeSuccess   = "success"
	outcomeCancelled = "cancelled"
	outcomeFailed    = "failed"
)

// Option configures a Conversation.
type Option func(*Conversation)

// WithLogger sets the conversation logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Conversation) {
		c.logger = log
	}
}

// WithSink forwards every event to sink as well as to subscribers.
func WithSink(sink events.Sink) Option {
	return func(c *Conversation) {
		c.sink = sink
	}
}

// WithTracer overrides the tracer used for send spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Conversation) {
		c.tracer = tracer
	}
}

// WithStoreOptions passes options to the underlying store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(c *Conversation) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// Conversation is one chat session with the agent.
type Conversation struct {
	id        string
	createdAt time.Time

	store     *store.Store
	storeOpts []store.Option
	hub       *events.Hub
	sink      events.Sink
	agent     agent.Client
	logger    *logger.Logger
	tracer    trace.Tracer

	// mu guards the cancellation token of the in-flight send.
	mu     sync.Mutex
	cancel context.CancelFunc
	token  uint64
	closed bool
}

// NewConversation creates an empty conversation talking to client.
func NewConversation(id string, client agent.Client, opts ...Option) *Conversation {
	c := &Conversation{
		id:        id,
		createdAt: time.Now(),
		hub:       events.NewHub(),
		agent:     client,
		logger:    logger.Global(),
		tracer:    tracing.Tracer("github.com/capitalize-ai/weather-chat/internal/chat"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store = store.New(append(c.storeOpts, store.WithObserver(c.publish))...)
	return c
}

// ID returns the conversation id.
func (c *Conversation) ID() string {
	return c.id
}

// CreatedAt returns when the conversation was created.
func (c *Conversation) CreatedAt() time.Time {
	return c.createdAt
}

// Snapshot returns a copy of the conversation state.
func (c *Conversation) Snapshot() model.State {
	return c.store.Snapshot()
}

// Subscribe returns a subscription to every future event.
func (c *Conversation) Subscribe() *events.Subscription {
	return c.hub.Subscribe()
}

// Busy reports whether a send is in flight.
func (c *Conversation) Busy() bool {
	return c.store.Snapshot().Loading
}

func (c *Conversation) publish(e model.Event) {
	e.ConversationID = c.id
	c.hub.Publish(e)
	if c.sink != nil {
		c.sink.Publish(e)
	}
}

// Send appends text as a user entry and streams the agent's reply into a
// new assistant entry. It blocks until the reply is complete, failed or
// cancelled. Blank text and sends while another is in flight are rejected
// without touching the conversation. A cancelled send removes its assistant
// entry and returns context.Canceled. A failed send leaves a failed
// assistant entry, records the error on the conversation and returns it.
func (c *Conversation) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if c.isClosed() {
		return ErrClosed
	}

	turn, ok := c.store.Begin(model.Entry{Role: model.RoleUser, Content: text})
	if !ok {
		return ErrBusy
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	id := c.store.Append(model.Entry{Role: model.RoleAssistant, Streaming: true})
	c.store.Attach(turn, id)
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	runCtx, release, err := c.acquire(ctx)
	if err != nil {
		c.store.Discard(id)
		c.store.Settle(turn, "")
		return err
	}
	defer release()

	spanCtx, span := c.tracer.Start(runCtx, "chat.send", trace.WithAttributes(
		attribute.String("conversation.id", c.id),
		attribute.String("entry.id", id),
		attribute.Int("history.length", len(turn.History)),
	))
	defer span.End()

	metrics.StreamsInFlight.Inc()
	defer metrics.StreamsInFlight.Dec()

	start := time.Now()
	messages := append(agent.History(turn.History), agent.ChatMessage{
		Role:    string(model.RoleUser),
		Content: text,
	})
	res, err := c.stream(spanCtx, id, messages)
	duration := time.Since(start)

	log := c.logger.With(
		zap.String("entry_id", id),
		zap.Int("fragments", res.stats.Fragments),
		zap.Duration("duration", duration),
	)

	var outcome string
	switch {
	case err == nil:
		outcome = outcomeSuccess
		content := res.content
		if content == "" {
			content = NoResponse
		}
		c.store.Patch(id, store.Patch{Content: &content, Streaming: ptr(false)})
		c.store.Settle(turn, "")

		if res.finish.PromptTokens > 0 || res.finish.CompletionTokens > 0 {
			metrics.RecordTokens(res.finish.PromptTokens, res.finish.CompletionTokens)
		}
		span.SetAttributes(attribute.String("finish.reason", res.finish.Reason))
		log.Info("agent reply complete",
			zap.Bool("finish_marker", res.finished),
			zap.String("finish_reason", res.finish.Reason),
		)

	case errors.Is(runCtx.Err(), context.Canceled):
		outcome = outcomeCancelled
		c.store.Discard(id)
		c.store.Settle(turn, "")
		err = context.Canceled
		log.Info("agent reply cancelled")

	default:
		outcome = outcomeFailed
		msg := err.Error()
		content := errorPrefix + msg
		c.store.Patch(id, store.Patch{Content: &content, Streaming: ptr(false), Failed: ptr(true)})
		c.store.Settle(turn, msg)

		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		log.Warn("agent reply failed", zap.Error(err))
	}

	span.SetAttributes(attribute.String("outcome", outcome))
	metrics.RecordAgentStream(outcome, duration.Seconds(), res.stats.Fragments, res.stats.Fallbacks, res.stats.Skipped)
	return err
}

type streamResult struct {
	content  string
	stats    stream.Stats
	finish   stream.FinishInfo
	finished bool
}

// stream opens the agent response and patches every fragment into entry
// id as it arrives.
func (c *Conversation) stream(ctx context.Context, id string, messages []agent.ChatMessage) (res streamResult, err error) {
	body, err := c.agent.Open(ctx, messages)
	if err != nil {
		return res, err
	}
	defer body.Close()

	dec := stream.NewDecoder(body)
	var content strings.Builder
	defer func() {
		res.content = content.String()
		res.stats = dec.Stats()
		res.finish = dec.FinishInfo()
		res.finished = dec.Finished()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		frag, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}

		content.WriteString(frag.Text)
		running := content.String()
		c.store.Patch(id, store.Patch{Content: &running, Streaming: ptr(true)})
	}
}

// acquire installs a fresh cancellation token for a send. The returned
// release func must be called on every exit path.
func (c *Conversation) acquire(ctx context.Context) (context.Context, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, ErrClosed
	}
	if c.cancel != nil {
		c.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.token++
	token := c.token
	c.cancel = cancel

	release := func() {
		cancel()
		c.mu.Lock()
		if c.token == token {
			c.cancel = nil
		}
		c.mu.Unlock()
	}
	return runCtx, release, nil
}

// Cancel aborts the in-flight send, if any. The pending assistant entry is
// removed and no error is recorded.
func (c *Conversation) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Clear aborts any in-flight send and empties the conversation.
func (c *Conversation) Clear() {
	c.Cancel()
	c.store.Clear()
}

// Close tears the conversation down: the in-flight send is cancelled,
// subscribers are released and further sends fail with ErrClosed.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.hub.CloseAll()
}

func (c *Conversation) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func ptr[T any](v T) *T {
	return &v
}
