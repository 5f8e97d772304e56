package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/daykeep/daykeep-api/internal/api"
	apiMiddleware "github.com/daykeep/daykeep-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	syncHandler := api.NewSyncHandler(
		app.syncEngine,
		app.gistClient,
		app.credStore,
		app.taskService,
		app.logger,
	)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Get("/today", taskHandler.TodayTasks)
			r.Get("/upcoming", taskHandler.UpcomingTasks)
			r.Get("/completed", taskHandler.CompletedTasks)
			r.Put("/{id}", taskHandler.UpdateTask)
			r.Delete("/{id}", taskHandler.DeleteTask)
			r.Post("/{id}/complete", taskHandler.CompleteTask)
			r.Post("/{id}/uncomplete", taskHandler.UncompleteTask)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", syncHandler.Status)
			r.Post("/refresh", syncHandler.Refresh)
			r.Post("/pull", syncHandler.Pull)
			r.Post("/push", syncHandler.Push)
			r.Put("/settings", syncHandler.UpdateSettings)
			r.Post("/create", syncHandler.CreateDocument)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
