// Package store holds the in-memory conversation log.
//
// A Store is the single owner of a conversation's State. All mutations are
// serialized by one mutex and every mutation is reported to the observer in
// the order it was applied. Observers run with the store locked and must not
// call back into the store.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/weather-chat/internal/model"
)

// Patch carries the entry fields to merge. Nil fields are left untouched.
type Patch struct {
	Content   *string
	Streaming *bool
	Failed    *bool
}

// Turn identifies one send cycle started by Begin.
type Turn struct {
	Seq     uint64
	UserID  string
	History []model.Entry
}

// Observer receives every mutation event.
type Observer func(model.Event)

// Option configures a Store.
type Option func(*Store)

// WithObserver registers the mutation observer.
func WithObserver(fn Observer) Option {
	return func(s *Store) {
		s.observer = fn
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDFunc overrides entry id generation. Ids must be unique.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// Store is a mutex-guarded conversation log.
type Store struct {
	mu sync.Mutex

	entries    []model.Entry
	loading    bool
	inFlightID string
	lastError  string

	turn uint64
	seq  uint64

	observer Observer
	now      func() time.Time
	newID    func() string
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now: time.Now,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append inserts an entry at the end of the log and returns its fresh id.
func (s *Store) Append(e model.Entry) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(e)
}

func (s *Store) appendLocked(e model.Entry) string {
	e.ID = s.newID()
	e.CreatedAt = s.now()
	s.entries = append(s.entries, e)

	s.emitLocked(model.EventTypeAppended, &e, e.ID)
	return e.ID
}

// Patch merges fields into the entry matching id. It reports whether an
// entry matched.
func (s *Store) Patch(id string, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}

	e := &s.entries[i]
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Streaming != nil {
		e.Streaming = *p.Streaming
	}
	if p.Failed != nil {
		e.Failed = *p.Failed
	}

	patched := *e
	s.emitLocked(model.EventTypePatched, &patched, id)
	return true
}

// Discard removes the entry matching id. It is used only to drop a
// cancelled in-flight entry.
func (s *Store) Discard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}

	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	if s.inFlightID == id {
		s.inFlightID = ""
	}

	s.emitLocked(model.EventTypeDiscarded, nil, id)
	return true
}

// Clear empties the log and resets loading, error and in-flight state.
// Any turn started before Clear can no longer attach or settle.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.loading = false
	s.inFlightID = ""
	s.lastError = ""
	s.turn++

	s.emitLocked(model.EventTypeCleared, nil, "")
}

// Begin starts a send cycle: it fails when a cycle is already loading,
// otherwise it snapshots the prior history, appends the finalized user
// entry, marks the conversation loading and clears the last error.
func (s *Store) Begin(user model.Entry) (Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return Turn{}, false
	}

	history := make([]model.Entry, len(s.entries))
	copy(history, s.entries)

	s.turn++
	s.loading = true
	s.lastError = ""

	user.Role = model.RoleUser
	user.Streaming = false
	user.Failed = false
	id := s.appendLocked(user)

	return Turn{Seq: s.turn, UserID: id, History: history}, true
}

// Attach marks id as the in-flight entry of turn.
func (s *Store) Attach(turn Turn, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Seq != s.turn || !s.loading || s.indexLocked(id) < 0 {
		return false
	}

	s.inFlightID = id
	s.emitLocked(model.EventTypeStatus, nil, id)
	return true
}

// Settle ends turn: loading and the in-flight id are cleared and errMsg,
// when non-empty, becomes the last error. A turn superseded by Clear is
// left alone.
func (s *Store) Settle(turn Turn, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Seq != s.turn {
		return false
	}

	s.loading = false
	s.inFlightID = ""
	if errMsg != "" {
		s.lastError = errMsg
	}

	s.emitLocked(model.EventTypeStatus, nil, "")
	return true
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]model.Entry, len(s.entries))
	copy(entries, s.entries)

	return model.State{
		Entries:    entries,
		Loading:    s.loading,
		InFlightID: s.inFlightID,
		LastError:  s.lastError,
		Sequence:   s.seq,
	}
}

// Get returns a copy of the entry matching id.
func (s *Store) Get(id string) (model.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.Entry{}, false
	}
	return s.entries[i], true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// indexLocked searches from the end; the in-flight entry is normally last.
func (s *Store) indexLocked(id string) int {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) statusLocked() model.Status {
	return model.State{
		Loading:    s.loading,
		InFlightID: s.inFlightID,
		LastError:  s.lastError,
	}.Status()
}

func (s *Store) emitLocked(t model.EventType, e *model.Entry, id string) {
	s.seq++
	if s.observer == nil {
		return
	}
	s.observer(model.Event{
		Type:      t,
		Sequence:  s.seq,
		Entry:     e,
		EntryID:   id,
		Status:    s.statusLocked(),
		CreatedAt: s.now(),
	})
}
