package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lectern-ai/lectern/internal/api"
	"github.com/lectern-ai/lectern/internal/api/handlers"
	"github.com/lectern-ai/lectern/internal/api/middleware"
)

type RouterConfig struct {
	QueryHandler   *handlers.QueryHandler
	CoursesHandler *handlers.CoursesHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", cfg.QueryHandler.Answer)
		r.Get("/courses", cfg.CoursesHandler.Stats)
		r.Delete("/sessions/{id}", cfg.QueryHandler.ClearSession)
	})

	return r
}
