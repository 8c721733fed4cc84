package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/api/response"
)

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 3 * time.Second

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// The store is required; a failing cache only marks the service degraded.
// cache may be nil when Redis is not configured.
func NewHealthHandler(store Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		body := healthResponse{Status: "ok", Checks: map[string]string{}}

		if err := store.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body.Status = "unavailable"
			body.Checks["store"] = err.Error()
		} else {
			body.Checks["store"] = "ok"
		}

		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				if body.Status == "ok" {
					body.Status = "degraded"
				}
				body.Checks["cache"] = err.Error()
			} else {
				body.Checks["cache"] = "ok"
			}
		}

		response.Status(w, status, body)
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
