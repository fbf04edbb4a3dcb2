package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"shoplist-go/internal/config"
	"shoplist-go/internal/metrics"
	"shoplist-go/internal/transport/httpserver/handler"
	"shoplist-go/internal/transport/httpserver/middleware"
)

const requestTimeout = 30 * time.Second

// NewRouter mounts the REST API under /list. realtime, when set, serves the
// WebSocket endpoint at /ws.
func NewRouter(cfg config.Config, handlers *handler.Handlers, realtime http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewCORS(cfg.AllowedOrigins))

	// Long-lived connections stay outside the request timeout.
	if realtime != nil {
		r.Handle("/ws", realtime)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		r.Get("/health", handlers.Common.Health)
		if cfg.MetricsEnabled {
			r.Handle("/metrics", metrics.Handler())
		}

		r.Route("/list", func(r chi.Router) {
			r.Get("/active", handlers.Shopping.GetActiveList)
			r.Post("/active/items", handlers.Shopping.AddItem)
			r.Patch("/active/items/{item_id}", handlers.Shopping.UpdateItem)
			r.Delete("/active/items/{item_id}", handlers.Shopping.DeleteItem)

			r.Post("/copy-from-history/{history_id}", handlers.Shopping.CopyFromHistory)
			r.Post("/archive", handlers.Shopping.ArchiveList)
			r.Post("/clear", handlers.Shopping.ClearList)
			r.Post("/restore-item", handlers.Shopping.RestoreItem)

			r.Get("/history", handlers.Shopping.ListHistory)
			r.Delete("/history", handlers.Shopping.ClearHistory)
			r.Delete("/history/{history_id}", handlers.Shopping.DeleteHistoryEntry)
			r.Delete("/history/{history_id}/items/{item_id}", handlers.Shopping.DeleteHistoryItem)
		})
	})

	return r
}
