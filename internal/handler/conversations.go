// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/weather-chat/internal/chat"
	"github.com/capitalize-ai/weather-chat/internal/middleware"
	"github.com/capitalize-ai/weather-chat/internal/model"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	manager *chat.Manager
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(manager *chat.Manager, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		manager: manager,
		logger:  log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	conv := h.manager.Create()
	writeJSON(w, http.StatusCreated, toConversation(conv, true))
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs := h.manager.List()

	resp := model.ListConversationsResponse{
		Conversations: make([]model.Conversation, 0, len(convs)),
		Total:         len(convs),
	}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, toConversation(c, false))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, ok := lookup(w, r, h.manager)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toConversation(conv, true))
}

// Delete handles DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conv, ok := lookup(w, r, h.manager)
	if !ok {
		return
	}

	if err := h.manager.Delete(conv.ID()); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/v1/conversations/:id/messages
func (h *ConversationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	conv, ok := lookup(w, r, h.manager)
	if !ok {
		return
	}

	conv.Clear()
	h.logger.Info("conversation cleared",
		zap.String("conversation_id", conv.ID()),
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
	)

	w.WriteHeader(http.StatusNoContent)
}

// Cancel handles POST /api/v1/conversations/:id/cancel
func (h *ConversationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	conv, ok := lookup(w, r, h.manager)
	if !ok {
		return
	}

	cancelled := conv.Cancel()
	writeJSON(w, http.StatusOK, map[string]bool{
		"cancelled": cancelled,
	})
}
