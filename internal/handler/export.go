package handler

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/weather-chat/internal/chat"
	"github.com/capitalize-ai/weather-chat/internal/export"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
)

// ExportHandler serves transcript downloads.
type ExportHandler struct {
	manager *chat.Manager
	options export.Options
	now     func() time.Time
	logger  *logger.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(manager *chat.Manager, opts export.Options, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		manager: manager,
		options: opts,
		now:     time.Now,
		logger:  log,
	}
}

// Export handles GET /api/v1/conversations/:id/export?format=text|json
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	conv, ok := lookup(w, r, h.manager)
	if !ok {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now()
	entries := conv.Snapshot().Entries

	var body []byte
	switch format {
	case export.FormatJSON:
		body, err = export.JSON(entries, now)
		if err != nil {
			h.logger.Error("failed to export conversation",
				zap.String("conversation_id", conv.ID()),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to export conversation")
			return
		}
	default:
		body = []byte(export.Text(entries, h.options))
	}

	w.Header().Set("Content-Type", format.MimeType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
