package handler

import (
	"net/http"

	"github.com/capitalize-ai/weather-chat/internal/middleware"
	"github.com/capitalize-ai/weather-chat/internal/model"
	"github.com/capitalize-ai/weather-chat/internal/search"
)

// Search handles GET /api/v1/conversations/:id/search?q=
func (h *ConversationHandler) Search(w http.ResponseWriter, r *http.Request) {
	conv, ok := lookup(w, r, h.manager)
	if !ok {
		return
	}

	q := r.URL.Query().Get("q")
	if err := middleware.ValidateSearchQuery(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := search.Results(conv.Snapshot().Entries, q)
	writeJSON(w, http.StatusOK, model.SearchResponse{
		Query:   q,
		Results: results,
		Total:   len(results),
	})
}
