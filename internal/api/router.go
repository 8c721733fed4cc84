package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/postpilot/internal/api/middleware"
	"github.com/kiranshivaraju/postpilot/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	Logger    *slog.Logger

	HealthHandler http.HandlerFunc
	ListJobs      http.HandlerFunc
	GetJob        http.HandlerFunc
	TriggerJobs   http.HandlerFunc
	PauseJob      http.HandlerFunc
	ResumeJob     http.HandlerFunc
	Metrics       http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	auth := deps.Auth
	if auth == nil {
		auth = mw.NewAuth("")
	}
	limit := deps.RateLimit
	if limit == nil {
		limit = mw.NewRateLimit(nil, 0, logger)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
	r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// Mutating routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(limit.Limit)

		r.Post("/api/v1/jobs/trigger", orNotImplemented(deps.TriggerJobs))
		r.Post("/api/v1/jobs/{jobID}/pause", orNotImplemented(deps.PauseJob))
		r.Post("/api/v1/jobs/{jobID}/resume", orNotImplemented(deps.ResumeJob))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, response.CodeNotImplemented, "Endpoint not yet implemented", nil)
	}
}
