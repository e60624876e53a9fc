package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/weather-chat/internal/chat"
	"github.com/capitalize-ai/weather-chat/internal/middleware"
	"github.com/capitalize-ai/weather-chat/internal/model"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// lookup resolves the {id} URL parameter, writing 400 or 404 on failure.
func lookup(w http.ResponseWriter, r *http.Request, manager *chat.Manager) (*chat.Conversation, bool) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	conv, err := manager.Get(conversationID)
	if errors.Is(err, chat.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return nil, false
	}
	return conv, true
}

func toConversation(conv *chat.Conversation, withEntries bool) model.Conversation {
	return fromState(conv, conv.Snapshot(), withEntries)
}

func fromState(conv *chat.Conversation, state model.State, withEntries bool) model.Conversation {
	out := model.Conversation{
		ID:           conv.ID(),
		CreatedAt:    conv.CreatedAt(),
		MessageCount: len(state.Entries),
		Status:       state.Status(),
		Sequence:     state.Sequence,
	}
	if withEntries {
		out.Entries = state.Entries
		if out.Entries == nil {
			out.Entries = []model.Entry{}
		}
	}
	return out
}

// sseHeaders prepares w for an event stream.
func sseHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}

// sendEvents writes a batch of conversation events.
func sendEvents(w http.ResponseWriter, flusher http.Flusher, batch []model.Event) error {
	for _, e := range batch {
		if err := sendSSEEvent(w, flusher, string(e.Type), e); err != nil {
			return err
		}
	}
	return nil
}
