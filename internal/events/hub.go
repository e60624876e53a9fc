// Package events fans conversation events out to subscribers.
package events

import (
	"context"
	"io"
	"sync"

	"github.com/capitalize-ai/weather-chat/internal/model"
)

// Sink receives every conversation event. Publish must not block.
type Sink interface {
	Publish(event model.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(model.Event)

// Publish calls f(event).
func (f SinkFunc) Publish(event model.Event) { f(event) }

// Hub delivers events to any number of subscribers. Each subscriber has an
// unbounded queue, so a slow reader never loses or reorders events and
// never blocks the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Publish enqueues event for every current subscriber.
func (h *Hub) Publish(event model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		sub.push(event)
	}
}

// Subscribe registers a new subscriber. Close it when done.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub:   h,
		ready: make(chan struct{}, 1),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// CloseAll closes every subscription.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for sub := range subs {
		sub.close()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Subscription is one subscriber's ordered event queue.
type Subscription struct {
	hub *Hub

	mu     sync.Mutex
	queue  []model.Event
	closed bool
	ready  chan struct{}
}

func (s *Subscription) push(event model.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled when events may be waiting or the subscription closed.
func (s *Subscription) Ready() <-chan struct{} {
	return s.ready
}

// Drain removes and returns every queued event.
func (s *Subscription) Drain() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.queue
	s.queue = nil
	return events
}

// Next blocks until an event is available. It returns io.EOF once the
// subscription is closed and drained.
func (s *Subscription) Next(ctx context.Context) (model.Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			event := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return event, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return model.Event{}, io.EOF
		}

		select {
		case <-ctx.Done():
			return model.Event{}, ctx.Err()
		case <-s.ready:
		}
	}
}

// Closed reports whether the subscription was closed.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.hub.remove(s)
	s.close()
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.signal()
}
