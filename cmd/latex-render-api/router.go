// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/luisedmundo354/latex-render-api/cmd/latex-render-api/handlers"
	"github.com/luisedmundo354/latex-render-api/cmd/latex-render-api/middleware"
	"github.com/luisedmundo354/latex-render-api/internal/compile"
	"github.com/luisedmundo354/latex-render-api/internal/config"
	"github.com/luisedmundo354/latex-render-api/internal/observability"
	"github.com/luisedmundo354/latex-render-api/internal/storage"
)

// NewRouter creates the API router with all routes configured. store is nil
// when the object store is not configured; the handlers report that as a
// configuration error rather than refusing to start.
func NewRouter(logger *observability.Logger, cfg *config.Config, store *storage.Client, compiler *compile.Compiler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(requestIDContext)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	// Health check (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	})

	presignHandler := handlers.NewPresignHandler(logger, store, cfg.Storage.PresignExpiry)
	compileHandler := handlers.NewCompileHandler(logger, store, compiler)

	// Everything except /health sits behind the shared-secret check.
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Auth.APIKey))
		r.Post("/presign", presignHandler.Presign)
		r.Post("/compile", compileHandler.Compile)
	})

	return r
}

// requestIDContext copies the chi request ID into the logging context so
// handler log lines carry it.
func requestIDContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.ContextWithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
