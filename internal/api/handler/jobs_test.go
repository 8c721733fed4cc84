package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/postpilot/internal/scheduler"
	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock JobService ---

type mockJobs struct {
	jobs      map[string]*models.Job
	err       error
	triggered int
}

func newMockJobs() *mockJobs {
	next := time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC)
	return &mockJobs{jobs: map[string]*models.Job{
		"ai-news": {ID: "ai-news", Topic: "ai news", Schedule: "every 24h", Status: models.JobStatusIdle, NextRun: next},
	}}
}

func (m *mockJobs) ListJobs(context.Context) ([]*models.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Job
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *mockJobs) Status(_ context.Context, id string) (*models.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get job %s: %w", id, scheduler.ErrJobNotFound)
	}
	return j, nil
}

func (m *mockJobs) PauseJob(ctx context.Context, id string) (*models.Job, error) {
	j, err := m.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	j.Status = models.JobStatusPaused
	return j, nil
}

func (m *mockJobs) ResumeJob(ctx context.Context, id string) (*models.Job, error) {
	j, err := m.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	j.Status = models.JobStatusIdle
	return j, nil
}

func (m *mockJobs) Trigger() { m.triggered++ }

// --- helpers ---

func serve(t *testing.T, h http.HandlerFunc, method, pattern, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody(t, rec)["error"].(map[string]any)["code"].(string)
}

func TestListJobs(t *testing.T) {
	rec := serve(t, NewListJobsHandler(newMockJobs()), http.MethodGet, "/api/v1/jobs", "/api/v1/jobs")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "ai-news", data[0].(map[string]any)["id"])
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["total"])
}

func TestListJobs_Empty(t *testing.T) {
	svc := &mockJobs{jobs: map[string]*models.Job{}}
	rec := serve(t, NewListJobsHandler(svc), http.MethodGet, "/api/v1/jobs", "/api/v1/jobs")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data": [], "meta": {"total": 0}}`, rec.Body.String())
}

func TestListJobs_StoreError(t *testing.T) {
	svc := newMockJobs()
	svc.err = errors.New("disk on fire")
	rec := serve(t, NewListJobsHandler(svc), http.MethodGet, "/api/v1/jobs", "/api/v1/jobs")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestGetJob(t *testing.T) {
	rec := serve(t, NewGetJobHandler(newMockJobs()), http.MethodGet, "/api/v1/jobs/{jobID}", "/api/v1/jobs/ai-news")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "every 24h", data["schedule"])
	assert.Equal(t, "2025-01-07T09:00:00Z", data["next_run"])
}

func TestGetJob_NotFound(t *testing.T) {
	rec := serve(t, NewGetJobHandler(newMockJobs()), http.MethodGet, "/api/v1/jobs/{jobID}", "/api/v1/jobs/missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", errorCode(t, rec))
}

func TestTrigger(t *testing.T) {
	svc := newMockJobs()
	rec := serve(t, NewTriggerHandler(svc), http.MethodPost, "/api/v1/jobs/trigger", "/api/v1/jobs/trigger")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, svc.triggered)
}

func TestPauseResume(t *testing.T) {
	svc := newMockJobs()

	rec := serve(t, NewPauseJobHandler(svc), http.MethodPost, "/api/v1/jobs/{jobID}/pause", "/api/v1/jobs/ai-news/pause")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", decodeBody(t, rec)["data"].(map[string]any)["status"])

	rec = serve(t, NewResumeJobHandler(svc), http.MethodPost, "/api/v1/jobs/{jobID}/resume", "/api/v1/jobs/ai-news/resume")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decodeBody(t, rec)["data"].(map[string]any)["status"])
}

func TestPause_Running(t *testing.T) {
	svc := newMockJobs()
	svc.err = fmt.Errorf("%w: ai-news", scheduler.ErrJobRunning)

	rec := serve(t, NewPauseJobHandler(svc), http.MethodPost, "/api/v1/jobs/{jobID}/pause", "/api/v1/jobs/ai-news/pause")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "JOB_RUNNING", errorCode(t, rec))
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		store  Pinger
		cache  Pinger
		code   int
		status string
	}{
		{"all ok", pinger{}, pinger{}, http.StatusOK, "ok"},
		{"no cache configured", pinger{}, nil, http.StatusOK, "ok"},
		{"cache down", pinger{}, pinger{errors.New("redis down")}, http.StatusOK, "degraded"},
		{"store down", pinger{errors.New("db down")}, pinger{}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, NewHealthHandler(tt.store, tt.cache), http.MethodGet, "/api/v1/health", "/api/v1/health")

			assert.Equal(t, tt.code, rec.Code)
			data := decodeBody(t, rec)["data"].(map[string]any)
			assert.Equal(t, tt.status, data["status"])
			checks := data["checks"].(map[string]any)
			_, hasCache := checks["cache"]
			assert.Equal(t, tt.cache != nil, hasCache)
		})
	}
}
