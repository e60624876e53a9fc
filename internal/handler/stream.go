package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/weather-chat/internal/chat"
	"github.com/capitalize-ai/weather-chat/internal/middleware"
	"github.com/capitalize-ai/weather-chat/internal/model"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
	"github.com/capitalize-ai/weather-chat/pkg/metrics"
)

// DefaultHeartbeat is the interval between keep-alive events.
const DefaultHeartbeat = 30 * time.Second

// SnapshotEvent opens a live stream with the current conversation.
type SnapshotEvent struct {
	Conversation model.Conversation `json:"conversation"`
}

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	manager   *chat.Manager
	heartbeat time.Duration
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(manager *chat.Manager, heartbeat time.Duration, log *logger.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &StreamHandler{
		manager:   manager,
		heartbeat: heartbeat,
		logger:    log,
	}
}

// Stream handles GET /api/v1/conversations/:id/stream
// It sends a snapshot, then every conversation event until the client
// disconnects or the conversation is deleted.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conv, ok := lookup(w, r, h.manager)
	if !ok {
		return
	}

	log := h.logger.WithConversation(middleware.GetCorrelationID(ctx), conv.ID())

	// Subscribe before the snapshot so no event falls between them.
	sub := conv.Subscribe()
	defer sub.Close()

	flusher, ok := sseHeaders(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	snapshot := conv.Snapshot()
	sendSSEEvent(w, flusher, "snapshot", &SnapshotEvent{Conversation: fromState(conv, snapshot, true)})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("SSE client disconnected")
			return

		case <-sub.Ready():
			for _, e := range sub.Drain() {
				if e.Sequence <= snapshot.Sequence {
					continue
				}
				if err := sendSSEEvent(w, flusher, string(e.Type), e); err != nil {
					log.Debug("live stream write failed", zap.Error(err))
					return
				}
			}
			if sub.Closed() {
				sendSSEEvent(w, flusher, "closed", map[string]string{"conversation_id": conv.ID()})
				return
			}

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}
