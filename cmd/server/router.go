package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskd/internal/api"
	apiMiddleware "github.com/phrazzld/taskd/internal/api/middleware"
)

// setupRouter creates the admin API router. Everything under /api requires a
// bearer token; /health is public.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	healthHandler := api.NewHealthHandler(app.scheduler)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.CreateTask)
			r.Get("/", taskHandler.ListTasks)
			r.Get("/{id}", taskHandler.GetTask)
			r.Delete("/{id}", taskHandler.DeleteTask)
		})
		r.Get("/workers", taskHandler.ListWorkers)
	})

	r.Get("/health", healthHandler.Health)

	return r
}
