package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/breathebhutan/tashi/internal/api/chat"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ChatHandler *chat.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Heartbeat/Health check endpoint
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat/{userID}", cfg.ChatHandler.ProcessMessage)
		r.Post("/chat/{userID}/reset", cfg.ChatHandler.ResetConversation)

		r.Get("/records/{category}", cfg.ChatHandler.SearchRecords)
		r.Get("/records/{category}/{recordID}", cfg.ChatHandler.GetRecord)

		r.Post("/admin/cache/invalidate", cfg.ChatHandler.InvalidateCache)
	})

	return r
}
