// Package rotation decides what each run posts: the content type for the day
// and whether the job moves on to its next topic.
package rotation

import (
	"fmt"
	"strings"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// DefaultProbability is the chance a run advances to the next topic.
const DefaultProbability = 0.3

// Rand is the subset of *rand.Rand used by Decide.
type Rand interface {
	Float64() float64
}

// Policy holds the rotation rules for every job. Topics is the rotation list
// for jobs that were added without one of their own.
type Policy struct {
	Topics       []string
	Weekdays     map[time.Weekday]models.ContentType
	Probability  float64
	MaxSources   int
	TargetLength int
}

// Decision is the outcome of one rotation step.
type Decision struct {
	ContentType models.ContentType
	Topic       string
	Rotated     bool
}

// DefaultWeekdays returns the default weekday to content type table.
func DefaultWeekdays() map[time.Weekday]models.ContentType {
	return map[time.Weekday]models.ContentType{
		time.Monday:    models.ContentArticle,
		time.Tuesday:   models.ContentSlideDeck,
		time.Wednesday: models.ContentGraph,
		time.Thursday:  models.ContentInfographic,
		time.Friday:    models.ContentArticle,
		time.Saturday:  models.ContentSlideDeck,
		time.Sunday:    models.ContentGraph,
	}
}

// NewPolicy builds a Policy from the content config, applying weekday overrides
// on top of the default table.
func NewPolicy(cfg config.ContentConfig) (Policy, error) {
	p := Policy{
		Topics:       append([]string(nil), cfg.Topics...),
		Weekdays:     DefaultWeekdays(),
		Probability:  cfg.RotationProbability,
		MaxSources:   cfg.MaxSources,
		TargetLength: cfg.TargetLength,
	}
	for day, ct := range cfg.Weekdays {
		wd, ok := config.ParseWeekday(day)
		if !ok {
			return Policy{}, fmt.Errorf("rotation: unknown weekday %q", day)
		}
		t, err := models.ParseContentType(ct)
		if err != nil {
			return Policy{}, fmt.Errorf("rotation: %w", err)
		}
		p.Weekdays[wd] = t
	}
	return p, nil
}

// Decide picks the content type and topic for a run of job on date.
// It draws exactly one number from rnd, so a seeded generator makes the
// sequence of decisions reproducible.
func Decide(date time.Time, job models.Job, p Policy, rnd Rand) Decision {
	d := Decision{ContentType: job.ContentType}
	if d.ContentType == "" {
		d.ContentType = p.contentType(date.Weekday())
	}

	topics := job.Topics
	if len(topics) == 0 {
		topics = p.Topics
	}
	draw := rnd.Float64()
	current := strings.TrimSpace(job.Topic)
	switch {
	case len(topics) == 0:
		d.Topic = current
	case draw < p.Probability:
		d.Topic = nextTopic(topics, current)
		d.Rotated = d.Topic != current
	case current == "":
		d.Topic = topics[0]
	default:
		d.Topic = current
	}
	return d
}

// Request builds the immutable request for a decision.
func (p Policy) Request(d Decision) models.ContentRequest {
	return models.ContentRequest{
		Topic:        d.Topic,
		ContentType:  d.ContentType,
		MaxSources:   p.MaxSources,
		TargetLength: p.TargetLength,
	}
}

func (p Policy) contentType(day time.Weekday) models.ContentType {
	if t, ok := p.Weekdays[day]; ok {
		return t
	}
	if t, ok := DefaultWeekdays()[day]; ok {
		return t
	}
	return models.ContentArticle
}

// nextTopic advances round-robin; a topic not in the list maps to the first entry.
func nextTopic(topics []string, current string) string {
	for i, t := range topics {
		if strings.EqualFold(t, current) {
			return topics[(i+1)%len(topics)]
		}
	}
	return topics[0]
}
