package api

import (
	"net/http"

	mw "github.com/anahq/ana/internal/api/middleware"
	"github.com/anahq/ana/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler        http.HandlerFunc
	AnalyzeLogsHandler   http.HandlerFunc
	AnalyzeVercelHandler http.HandlerFunc
	AnalyzeReviewHandler http.HandlerFunc
	ListRunsHandler      http.HandlerFunc
	GetRunHandler        http.HandlerFunc
	WebhookStatusHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/analyze/logs", orNotImplemented(deps.AnalyzeLogsHandler))
		r.Post("/api/v1/analyze/vercel", orNotImplemented(deps.AnalyzeVercelHandler))
		r.Post("/api/v1/analyze/review", orNotImplemented(deps.AnalyzeReviewHandler))

		r.Get("/api/v1/runs", orNotImplemented(deps.ListRunsHandler))
		r.Get("/api/v1/runs/{runID}", orNotImplemented(deps.GetRunHandler))

		r.Get("/api/v1/webhook/status", orNotImplemented(deps.WebhookStatusHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
