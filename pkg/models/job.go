package models

import (
	"time"
)

// JobStatus is the lifecycle state of a scheduled job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusPaused    JobStatus = "paused"
)

// MaxHistory bounds the number of run outcomes kept per job.
const MaxHistory = 50

// Job is a persisted unit of recurring work tied to one identity.
// The scheduler is the only writer; everything else reads copies.
type Job struct {
	ID          string         `json:"id"`
	Topic       string         `json:"topic"`
	Topics      []string       `json:"topics,omitempty"`
	Schedule    string         `json:"schedule"`
	ContentType ContentType    `json:"content_type,omitempty"`
	NextRun     time.Time      `json:"next_run"`
	Status      JobStatus      `json:"status"`
	LastError   string         `json:"last_error,omitempty"`
	History     []HistoryEntry `json:"history,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// HistoryEntry records the outcome of one run.
type HistoryEntry struct {
	RunID    string    `json:"run_id"`
	At       time.Time `json:"at"`
	Outcome  Outcome   `json:"outcome"`
	Reason   string    `json:"reason,omitempty"`
	Topic    string    `json:"topic,omitempty"`
	Provider string    `json:"provider,omitempty"`
	PostID   string    `json:"post_id,omitempty"`
}

// Record appends an entry and trims history to the last MaxHistory entries.
func (j *Job) Record(e HistoryEntry) {
	j.History = append(j.History, e)
	if n := len(j.History); n > MaxHistory {
		j.History = append([]HistoryEntry(nil), j.History[n-MaxHistory:]...)
	}
}

// Resting reports whether the job may be picked up by the fire check.
func (j *Job) Resting() bool {
	return j.Status != JobStatusRunning && j.Status != JobStatusPaused
}

// Due reports whether the job should fire at now.
func (j *Job) Due(now time.Time) bool {
	return j.Resting() && !now.Before(j.NextRun)
}

// LastRun returns the most recent history entry, if any.
func (j *Job) LastRun() (HistoryEntry, bool) {
	if len(j.History) == 0 {
		return HistoryEntry{}, false
	}
	return j.History[len(j.History)-1], true
}

// Clone returns a deep copy safe to hand out of the scheduler.
func (j *Job) Clone() *Job {
	c := *j
	c.Topics = append([]string(nil), j.Topics...)
	c.History = append([]HistoryEntry(nil), j.History...)
	return &c
}
