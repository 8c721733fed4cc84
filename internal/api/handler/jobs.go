package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/postpilot/internal/api/response"
	"github.com/kiranshivaraju/postpilot/internal/scheduler"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// JobService is the part of the scheduler the job handlers depend on.
type JobService interface {
	ListJobs(ctx context.Context) ([]*models.Job, error)
	Status(ctx context.Context, id string) (*models.Job, error)
	PauseJob(ctx context.Context, id string) (*models.Job, error)
	ResumeJob(ctx context.Context, id string) (*models.Job, error)
	Trigger()
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := svc.ListJobs(r.Context())
		if err != nil {
			writeJobError(w, err)
			return
		}
		if jobs == nil {
			jobs = []*models.Job{}
		}
		response.Collection(w, jobs, response.ListMeta{Total: len(jobs)})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := svc.Status(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeJobError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewTriggerHandler returns an http.HandlerFunc for POST /api/v1/jobs/trigger.
// It only wakes the scheduler loop; due jobs run asynchronously.
func NewTriggerHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		svc.Trigger()
		response.Accepted(w, map[string]bool{"triggered": true})
	}
}

// NewPauseJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/pause.
func NewPauseJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := svc.PauseJob(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeJobError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewResumeJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/resume.
func NewResumeJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := svc.ResumeJob(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeJobError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

func writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		response.Error(w, http.StatusNotFound, response.CodeJobNotFound, "Job not found", nil)
	case errors.Is(err, scheduler.ErrJobRunning):
		response.Error(w, http.StatusConflict, response.CodeJobRunning, "Job is currently running", nil)
	default:
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "An unexpected error occurred", nil)
	}
}
