package models_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHashtag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"quantum computing", "#QuantumComputing"},
		{"#AI", "#AI"},
		{"machine-learning", "#MachineLearning"},
		{"  #already  ", "#Already"},
		{"###", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, models.NormalizeHashtag(tt.in))
		})
	}
}

func TestArtifact_AddHashtags_Dedups(t *testing.T) {
	a := models.ContentArtifact{Hashtags: []string{"#AI"}}
	a.AddHashtags("ai", "#Innovation", "innovation", "", "cloud native")

	assert.Equal(t, []string{"#AI", "#Innovation", "#CloudNative"}, a.Hashtags)
}

func TestArtifact_IsEmpty(t *testing.T) {
	assert.True(t, models.ContentArtifact{Headline: "only a headline"}.IsEmpty())
	assert.True(t, models.ContentArtifact{Sections: []models.Section{{Heading: "h", Body: "  "}}}.IsEmpty())
	assert.False(t, models.ContentArtifact{Sections: []models.Section{{Bullets: []string{"point"}}}}.IsEmpty())
	assert.False(t, models.ContentArtifact{Sections: []models.Section{{Body: "text"}}}.IsEmpty())
}

func TestArtifact_Body(t *testing.T) {
	a := models.ContentArtifact{
		Headline: "Headline",
		Sections: []models.Section{
			{Heading: "Intro", Body: "Opening."},
			{Bullets: []string{"one", "two"}},
		},
		Hashtags: []string{"#A", "#B"},
	}

	body := a.Body()
	assert.Equal(t, "Headline\n\nIntro\nOpening.\n\n• one\n• two\n\n#A #B", body)
}

func TestParseContentType(t *testing.T) {
	ct, err := models.ParseContentType("Slides")
	require.NoError(t, err)
	assert.Equal(t, models.ContentSlideDeck, ct)

	_, err = models.ParseContentType("video")
	assert.Error(t, err)
}

func TestJob_RecordBoundsHistory(t *testing.T) {
	j := &models.Job{ID: "ai-news"}
	for i := 0; i < models.MaxHistory+10; i++ {
		j.Record(models.HistoryEntry{RunID: fmt.Sprint(i)})
	}

	require.Len(t, j.History, models.MaxHistory)
	assert.Equal(t, "10", j.History[0].RunID)
	last, ok := j.LastRun()
	require.True(t, ok)
	assert.Equal(t, fmt.Sprint(models.MaxHistory+9), last.RunID)
}

func TestJob_Due(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	j := &models.Job{Status: models.JobStatusIdle, NextRun: now}
	assert.True(t, j.Due(now))
	assert.False(t, j.Due(now.Add(-time.Second)))

	j.Status = models.JobStatusPaused
	assert.False(t, j.Due(now))
	j.Status = models.JobStatusRunning
	assert.False(t, j.Due(now))
	j.Status = models.JobStatusFailed
	assert.True(t, j.Due(now))
}

func TestJob_CloneIsDeep(t *testing.T) {
	j := &models.Job{ID: "x", Topics: []string{"a"}, History: []models.HistoryEntry{{RunID: "1"}}}
	c := j.Clone()
	c.Topics[0] = "b"
	c.History[0].RunID = "2"

	assert.Equal(t, "a", j.Topics[0])
	assert.Equal(t, "1", j.History[0].RunID)
}

func TestRunReport_Outcome(t *testing.T) {
	r := models.RunReport{State: models.StageCompleted}
	assert.Equal(t, models.OutcomeSucceeded, r.Outcome())

	r.Degraded = []string{"enhance: timeout", "no research results"}
	assert.Equal(t, models.OutcomeDegraded, r.Outcome())
	assert.Equal(t, "enhance: timeout; no research results", r.Reason())

	r.State = models.StageFailed
	r.FailureReason = "AuthExpired"
	assert.Equal(t, models.OutcomeFailed, r.Outcome())
	assert.Equal(t, "AuthExpired", r.Reason())
}

func TestProviderResult(t *testing.T) {
	assert.True(t, models.Success(models.ContentArtifact{}).Succeeded())
	f := models.Failure(nil)
	assert.False(t, f.Succeeded())
	assert.Error(t, f.Err)
}
