package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/api"
	"github.com/kiranshivaraju/postpilot/internal/api/handler"
	mw "github.com/kiranshivaraju/postpilot/internal/api/middleware"
	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const token = "pp_router_token"

// --- stub job service ---

type stubJobs struct{ triggered int }

func (s *stubJobs) ListJobs(context.Context) ([]*models.Job, error) {
	return []*models.Job{{ID: "ai-news", Status: models.JobStatusIdle}}, nil
}
func (s *stubJobs) Status(_ context.Context, id string) (*models.Job, error) {
	return &models.Job{ID: id, Status: models.JobStatusIdle}, nil
}
func (s *stubJobs) PauseJob(_ context.Context, id string) (*models.Job, error) {
	return &models.Job{ID: id, Status: models.JobStatusPaused}, nil
}
func (s *stubJobs) ResumeJob(_ context.Context, id string) (*models.Job, error) {
	return &models.Job{ID: id, Status: models.JobStatusIdle}, nil
}
func (s *stubJobs) Trigger() { s.triggered++ }

// --- stub cache counting every call ---

type stubCache struct{ n int64 }

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *stubCache) Ping(_ context.Context) error                                     { return nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	c.n++
	return c.n, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter(t *testing.T, tokenHash string, limit int) (http.Handler, *stubJobs) {
	t.Helper()
	jobs := &stubJobs{}
	logger := discardLogger()
	return api.NewRouter(api.Dependencies{
		Auth:          mw.NewAuth(tokenHash),
		RateLimit:     mw.NewRateLimit(&stubCache{}, limit, logger),
		Logger:        logger,
		HealthHandler: handler.NewHealthHandler(okPinger{}, okPinger{}),
		ListJobs:      handler.NewListJobsHandler(jobs),
		GetJob:        handler.NewGetJobHandler(jobs),
		TriggerJobs:   handler.NewTriggerHandler(jobs),
		PauseJob:      handler.NewPauseJobHandler(jobs),
		ResumeJob:     handler.NewResumeJobHandler(jobs),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("postpilot_runs_total 1\n"))
		}),
	}), jobs
}

func hash(t *testing.T) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func do(router http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	router, _ := newRouter(t, "", 10)

	for _, path := range []string{"/api/v1/health", "/api/v1/jobs", "/api/v1/jobs/ai-news", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			w := do(router, http.MethodGet, path, "")
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRouter_MutatingRoutesDisabledWithoutHash(t *testing.T) {
	router, jobs := newRouter(t, "", 10)

	for _, path := range []string{"/api/v1/jobs/trigger", "/api/v1/jobs/ai-news/pause", "/api/v1/jobs/ai-news/resume"} {
		t.Run(path, func(t *testing.T) {
			w := do(router, http.MethodPost, path, token)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
	assert.Zero(t, jobs.triggered)
}

func TestRouter_MutatingRoutesRequireToken(t *testing.T) {
	router, jobs := newRouter(t, hash(t), 10)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/jobs/trigger", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/jobs/trigger", "nope").Code)
	assert.Zero(t, jobs.triggered)

	w := do(router, http.MethodPost, "/api/v1/jobs/trigger", token)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, jobs.triggered)

	w = do(router, http.MethodPost, "/api/v1/jobs/ai-news/pause", token)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "paused", body["data"]["status"])
}

func TestRouter_RateLimit(t *testing.T) {
	router, _ := newRouter(t, hash(t), 1)

	assert.Equal(t, http.StatusAccepted, do(router, http.MethodPost, "/api/v1/jobs/trigger", token).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/api/v1/jobs/trigger", token).Code)

	// Reads are not rate limited.
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/jobs", "").Code)
}

func TestRouter_NotImplemented(t *testing.T) {
	router := api.NewRouter(api.Dependencies{Logger: discardLogger()})

	w := do(router, http.MethodGet, "/api/v1/jobs", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := newRouter(t, "", 10)

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/v1/clusters", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodDelete, "/api/v1/jobs", "").Code)
}
