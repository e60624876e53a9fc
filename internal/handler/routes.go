package handler

import (
	"github.com/go-chi/chi/v5"
)

// Handlers groups the conversation API handlers.
type Handlers struct {
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Stream        *StreamHandler
	Export        *ExportHandler
}

// Routes mounts the conversation API under r.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/", h.Conversations.Create)
	r.Get("/", h.Conversations.List)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Conversations.Get)
		r.Delete("/", h.Conversations.Delete)

		// Messages
		r.Post("/messages", h.Messages.Send)
		r.Delete("/messages", h.Conversations.Clear)
		r.Post("/cancel", h.Conversations.Cancel)

		// Live updates
		r.Get("/stream", h.Stream.Stream)

		// Transcript
		r.Get("/search", h.Conversations.Search)
		r.Get("/export", h.Export.Export)
	})
}
