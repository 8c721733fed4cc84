// Package pipeline runs one content request through research, synthesis,
// enhancement, rendering and publication.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/postpilot/internal/ai"
	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/kiranshivaraju/postpilot/internal/metrics"
	"github.com/kiranshivaraju/postpilot/internal/publish"
	"github.com/kiranshivaraju/postpilot/internal/research"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// ErrEmptyArtifact is returned instead of publishing an artifact with no body.
var ErrEmptyArtifact = errors.New("pipeline: artifact has an empty body")

// Failure reasons recorded on reports that did not complete.
const (
	ReasonResearchFailed  = "ResearchFailed"
	ReasonSynthesisFailed = "SynthesisFailed"
	ReasonEmptyArtifact   = "EmptyArtifact"
	ReasonInterrupted     = "Interrupted"
)

// Synthesizer produces an artifact and reports every provider attempt.
// *ai.Chain implements it.
type Synthesizer interface {
	SynthesizeWithAttempts(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet) (models.ProviderResult, []ai.Attempt)
}

// Enhancer augments a synthesized artifact. On error it returns the artifact
// it was given.
type Enhancer interface {
	Enhance(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet, artifact models.ContentArtifact) (models.ContentArtifact, error)
}

// Renderer produces image references for visual content types.
type Renderer interface {
	Render(ctx context.Context, req models.ContentRequest, artifact models.ContentArtifact) ([]string, error)
}

// Recorder receives run metrics. *metrics.Metrics implements it.
type Recorder interface {
	RunCompleted(ctx context.Context, outcome models.Outcome)
	StageObserved(ctx context.Context, stage models.Stage, d time.Duration)
	ProviderFallback(ctx context.Context, provider string)
	AuthExpired(ctx context.Context)
}

// Orchestrator sequences the stages of a run.
type Orchestrator struct {
	gatherer  research.Gatherer
	synth     Synthesizer
	publisher publish.Publisher
	enhancer  Enhancer
	renderer  Renderer
	recorder  Recorder
	cfg       config.PipelineConfig
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithEnhancer enables the best-effort enhancing stage.
func WithEnhancer(e Enhancer) Option {
	return func(o *Orchestrator) { o.enhancer = e }
}

// WithRenderer enables image rendering for visual content types.
func WithRenderer(r Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithRecorder sets where run metrics go. The default discards them.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger sets the logger for run and stage events.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// WithClock overrides the time source for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New returns an Orchestrator that researches with g, synthesizes with s and
// publishes with p.
func New(g research.Gatherer, s Synthesizer, p publish.Publisher, cfg config.PipelineConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gatherer:  g,
		synth:     s,
		publisher: p,
		recorder:  metrics.NewNop(),
		cfg:       cfg,
		logger:    slog.Default(),
		sleep:     sleepCtx,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one run and returns its report. It never panics and never
// returns without a final state. Cancelling ctx stops the run before the next
// stage starts; a stage already in flight finishes under its own timeout.
func (o *Orchestrator) Run(ctx context.Context, req models.ContentRequest, jobID string) (report models.RunReport) {
	report = models.RunReport{
		RunID:       uuid.NewString(),
		JobID:       jobID,
		Topic:       req.Topic,
		ContentType: req.ContentType,
		State:       models.StageStarted,
		StartedAt:   o.now(),
	}
	logger := o.logger.With("run_id", report.RunID, "job_id", jobID, "topic", req.Topic)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in pipeline", "error", r, "stage", report.State)
			report.State = models.StageFailed
			report.FailureReason = fmt.Sprintf("Panic: %v", r)
		}
		report.FinishedAt = o.now()
		o.recorder.RunCompleted(context.WithoutCancel(ctx), report.Outcome())
		logger.Info("run finished",
			"outcome", report.Outcome(),
			"content_type", report.ContentType,
			"provider", report.Provider,
			"post_id", report.PostID,
			"reason", report.Reason(),
			"duration", report.FinishedAt.Sub(report.StartedAt),
		)
	}()

	sources, ok := o.research(ctx, req, &report, logger)
	if !ok {
		return report
	}

	artifact, ok := o.synthesize(ctx, req, sources, &report, logger)
	if !ok {
		return report
	}

	if o.enhancer != nil {
		if !o.proceed(ctx, &report, models.StageEnhancing) {
			return report
		}
		artifact = o.enhance(ctx, req, sources, artifact, &report, logger)
	}

	if o.renderer != nil && req.ContentType.Visual() {
		if !o.proceed(ctx, &report, models.StageRendering) {
			return report
		}
		artifact = o.render(ctx, req, artifact, &report, logger)
	}

	o.publish(ctx, artifact, &report, logger)
	return report
}

// proceed moves the report to stage unless shutdown was requested.
func (o *Orchestrator) proceed(ctx context.Context, report *models.RunReport, stage models.Stage) bool {
	if ctx.Err() != nil {
		report.State = models.StageFailed
		report.FailureReason = ReasonInterrupted
		return false
	}
	report.State = stage
	return true
}

func (o *Orchestrator) research(ctx context.Context, req models.ContentRequest, report *models.RunReport, logger *slog.Logger) ([]models.SourceSnippet, bool) {
	if !o.proceed(ctx, report, models.StageResearching) {
		return nil, false
	}

	var sources []models.SourceSnippet
	err := o.stage(ctx, report, models.StageResearching, o.cfg.ResearchTimeout, alwaysRetry, func(ctx context.Context) error {
		var err error
		sources, err = o.gatherer.Gather(ctx, req.Topic, req.MaxSources)
		return err
	})
	if err != nil {
		logger.Error("research failed", "error", err)
		o.fail(report, ReasonResearchFailed)
		return nil, false
	}

	report.Sources = len(sources)
	if len(sources) == 0 {
		logger.Warn("no research results; synthesizing from topic alone")
		report.Degraded = append(report.Degraded, "no research results")
	}
	return sources, true
}

func (o *Orchestrator) synthesize(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet, report *models.RunReport, logger *slog.Logger) (models.ContentArtifact, bool) {
	if !o.proceed(ctx, report, models.StageSynthesizing) {
		return models.ContentArtifact{}, false
	}

	var res models.ProviderResult
	err := o.stage(ctx, report, models.StageSynthesizing, o.cfg.SynthesisTimeout, alwaysRetry, func(ctx context.Context) error {
		var attempts []ai.Attempt
		res, attempts = o.synth.SynthesizeWithAttempts(ctx, req, sources)
		for _, a := range attempts {
			if a.Err != nil {
				o.recorder.ProviderFallback(ctx, a.Provider)
			}
		}
		return res.Err
	})
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		o.fail(report, ReasonSynthesisFailed)
		return models.ContentArtifact{}, false
	}

	report.Provider = res.Artifact.Provenance.Provider
	if report.Provider == ai.TemplateName {
		report.Degraded = append(report.Degraded, "template content used")
	}
	return res.Artifact, true
}

func (o *Orchestrator) enhance(ctx context.Context, req models.ContentRequest, sources []models.SourceSnippet, artifact models.ContentArtifact, report *models.RunReport, logger *slog.Logger) models.ContentArtifact {
	out := artifact
	err := o.stage(ctx, report, models.StageEnhancing, o.cfg.EnhanceTimeout, neverRetry, func(ctx context.Context) error {
		enhanced, err := o.enhancer.Enhance(ctx, req, sources, artifact)
		if err == nil {
			out = enhanced
		}
		return err
	})
	if err != nil {
		logger.Warn("enhancement failed; keeping synthesized artifact", "error", err)
		report.Degraded = append(report.Degraded, "enhancement failed: "+err.Error())
		return artifact
	}
	return out
}

func (o *Orchestrator) render(ctx context.Context, req models.ContentRequest, artifact models.ContentArtifact, report *models.RunReport, logger *slog.Logger) models.ContentArtifact {
	var refs []string
	err := o.stage(ctx, report, models.StageRendering, o.cfg.RenderTimeout, neverRetry, func(ctx context.Context) error {
		var err error
		refs, err = o.renderer.Render(ctx, req, artifact)
		return err
	})
	if err != nil {
		logger.Warn("rendering failed; publishing without images", "error", err)
		report.Degraded = append(report.Degraded, "rendering failed: "+err.Error())
		return artifact
	}
	artifact.ImageRefs = append(append([]string(nil), artifact.ImageRefs...), refs...)
	return artifact
}

func (o *Orchestrator) publish(ctx context.Context, artifact models.ContentArtifact, report *models.RunReport, logger *slog.Logger) {
	if !o.proceed(ctx, report, models.StagePublishing) {
		return
	}
	if artifact.IsEmpty() {
		logger.Error("refusing to publish", "error", ErrEmptyArtifact)
		report.Stages = append(report.Stages, models.StageTiming{
			Stage: models.StagePublishing, Started: o.now(), Err: ErrEmptyArtifact.Error(),
		})
		o.fail(report, ReasonEmptyArtifact)
		return
	}

	var postID string
	err := o.stage(ctx, report, models.StagePublishing, o.cfg.PublishTimeout, publish.Retryable, func(ctx context.Context) error {
		var err error
		postID, err = o.publisher.Publish(ctx, artifact)
		return err
	})
	if err != nil {
		if errors.Is(err, publish.ErrAuthExpired) {
			o.recorder.AuthExpired(context.WithoutCancel(ctx))
			logger.Error("LinkedIn access token expired; operator must refresh LINKEDIN_ACCESS_TOKEN", "error", err)
		} else {
			logger.Error("publish failed", "error", err)
		}
		o.fail(report, publish.Reason(err))
		return
	}

	report.PostID = postID
	report.State = models.StageCompleted
}

func (o *Orchestrator) fail(report *models.RunReport, reason string) {
	report.State = models.StageFailed
	report.FailureReason = reason
}

// stage runs fn with retries and appends its timing to the report.
func (o *Orchestrator) stage(ctx context.Context, report *models.RunReport, stage models.Stage, timeout time.Duration, retryable func(error) bool, fn func(context.Context) error) error {
	started := o.now()
	attempts, err := o.retry(ctx, timeout, retryable, fn)

	timing := models.StageTiming{
		Stage:    stage,
		Started:  started,
		Duration: o.now().Sub(started),
		Attempts: attempts,
	}
	if err != nil {
		timing.Err = err.Error()
	}
	report.Stages = append(report.Stages, timing)
	o.recorder.StageObserved(context.WithoutCancel(ctx), stage, timing.Duration)
	return err
}
