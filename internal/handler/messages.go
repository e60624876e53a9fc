package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/weather-chat/internal/chat"
	"github.com/capitalize-ai/weather-chat/internal/middleware"
	"github.com/capitalize-ai/weather-chat/internal/model"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
	"github.com/capitalize-ai/weather-chat/pkg/metrics"
)

// DoneEvent terminates a send stream.
type DoneEvent struct {
	Success   bool `json:"success"`
	Cancelled bool `json:"cancelled,omitempty"`
}

// MessageHandler handles message endpoints.
type MessageHandler struct {
	manager *chat.Manager
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(manager *chat.Manager, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		manager: manager,
		logger:  log,
	}
}

// Send handles POST /api/v1/conversations/:id/messages
// The response streams every conversation event the send produces and ends
// with a done or error event. Disconnecting cancels the send.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conv, ok := lookup(w, r, h.manager)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if conv.Busy() {
		writeError(w, http.StatusConflict, chat.ErrBusy.Error())
		return
	}

	log := h.logger.WithConversation(middleware.GetCorrelationID(ctx), conv.ID())

	sub := conv.Subscribe()
	defer sub.Close()

	flusher, ok := sseHeaders(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	result := make(chan error, 1)
	go func() {
		result <- conv.Send(ctx, req.Content)
	}()

	for {
		select {
		case <-sub.Ready():
			if err := sendEvents(w, flusher, sub.Drain()); err != nil {
				log.Debug("send stream write failed", zap.Error(err))
			}

		case err := <-result:
			sendEvents(w, flusher, sub.Drain())
			h.finish(w, flusher, log, err)
			return
		}
	}
}

func (h *MessageHandler) finish(w http.ResponseWriter, flusher http.Flusher, log *logger.Logger, err error) {
	switch {
	case err == nil:
		sendSSEEvent(w, flusher, "done", DoneEvent{Success: true})

	case errors.Is(err, context.Canceled):
		log.Info("send cancelled")
		sendSSEEvent(w, flusher, "done", DoneEvent{Cancelled: true})

	case errors.Is(err, chat.ErrBusy):
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "busy",
			Message: err.Error(),
		})

	case errors.Is(err, chat.ErrClosed):
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "closed",
			Message: err.Error(),
		})

	default:
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "agent_error",
			Message: err.Error(),
		})
	}
}
