package models

import (
	"time"
)

// Stage is one phase of the pipeline state machine.
type Stage string

const (
	StageStarted      Stage = "started"
	StageResearching  Stage = "researching"
	StageSynthesizing Stage = "synthesizing"
	StageEnhancing    Stage = "enhancing"
	StageRendering    Stage = "rendering"
	StagePublishing   Stage = "publishing"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

// Outcome summarizes a finished run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeDegraded  Outcome = "degraded"
	OutcomeFailed    Outcome = "failed"
)

// StageTiming is the report line for one executed stage.
type StageTiming struct {
	Stage    Stage         `json:"stage"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
	Err      string        `json:"error,omitempty"`
}

// RunReport is the observable record of one pipeline run.
type RunReport struct {
	RunID         string        `json:"run_id"`
	JobID         string        `json:"job_id,omitempty"`
	Topic         string        `json:"topic"`
	ContentType   ContentType   `json:"content_type"`
	State         Stage         `json:"state"`
	Stages        []StageTiming `json:"stages"`
	Provider      string        `json:"provider,omitempty"`
	PostID        string        `json:"post_id,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	Degraded      []string      `json:"degraded,omitempty"`
	Sources       int           `json:"sources"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
}

// Outcome collapses the report into succeeded, degraded or failed.
func (r RunReport) Outcome() Outcome {
	switch {
	case r.State != StageCompleted:
		return OutcomeFailed
	case len(r.Degraded) > 0:
		return OutcomeDegraded
	default:
		return OutcomeSucceeded
	}
}

// Reason returns the failure reason, or the degradation reasons joined.
func (r RunReport) Reason() string {
	if r.FailureReason != "" {
		return r.FailureReason
	}
	reason := ""
	for i, d := range r.Degraded {
		if i > 0 {
			reason += "; "
		}
		reason += d
	}
	return reason
}

// Timing returns the report line for a stage, if it ran.
func (r RunReport) Timing(s Stage) (StageTiming, bool) {
	for _, t := range r.Stages {
		if t.Stage == s {
			return t, true
		}
	}
	return StageTiming{}, false
}
