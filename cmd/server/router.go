package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkessler/cardvault-api/internal/api"
	apiMiddleware "github.com/mkessler/cardvault-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(
		app.config.Auth.PasswordHash,
		app.jwtService,
		app.passwordVerifier,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	pendingHandler := api.NewPendingHandler(app.fileStore, app.verifyService)
	reprocessHandler := api.NewReprocessHandler(app.reprocessService)
	batchHandler := api.NewBatchHandler(app.batchService)
	fieldsHandler := api.NewFieldsHandler(app.catalog)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoint (public)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Pending queue
			r.Get("/pending", pendingHandler.List)
			r.Get("/pending/{id}", pendingHandler.Get)
			r.Post("/pending/{id}/save", pendingHandler.SaveProgress)
			r.Post("/pending/{id}/cards/{index}/pass", pendingHandler.PassCard)
			r.Post("/pending/{id}/cards/{index}/fail", pendingHandler.FailCard)
			r.Post("/pending/{id}/pass-all", pendingHandler.PassAll)
			r.Post("/pending/{id}/fail-all", pendingHandler.FailAll)
			r.Post("/pending/{id}/undo", pendingHandler.Undo)

			// Reprocessing
			r.Post("/pending/{id}/reprocess", reprocessHandler.Reprocess)
			r.Post("/pending/{id}/reprocess/cancel", reprocessHandler.Cancel)

			// Sessions and vocabularies
			r.Get("/sessions", pendingHandler.Sessions)
			r.Get("/fields", fieldsHandler.Get)

			// Batch sweep
			r.Post("/batch/start", batchHandler.Start)
			r.Get("/batch/status", batchHandler.Status)
			r.Post("/batch/cancel", batchHandler.Cancel)
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
