package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/ai"
	"github.com/kiranshivaraju/postpilot/internal/api"
	"github.com/kiranshivaraju/postpilot/internal/api/handler"
	mw "github.com/kiranshivaraju/postpilot/internal/api/middleware"
	"github.com/kiranshivaraju/postpilot/internal/cache"
	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/kiranshivaraju/postpilot/internal/metrics"
	"github.com/kiranshivaraju/postpilot/internal/pipeline"
	"github.com/kiranshivaraju/postpilot/internal/publish"
	"github.com/kiranshivaraju/postpilot/internal/research"
	"github.com/kiranshivaraju/postpilot/internal/rotation"
	"github.com/kiranshivaraju/postpilot/internal/scheduler"
	"github.com/kiranshivaraju/postpilot/internal/store"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// app is the wired process: store, optional cache, pipeline and scheduler.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store   store.JobStore
	cache   cache.Cache
	policy  rotation.Policy
	orch    *pipeline.Orchestrator
	sched   *scheduler.Scheduler
	metrics http.Handler

	closers []func() error
}

// newApp wires every component from cfg. Posts printed by the dry-run
// publisher go to out.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st.Close)
	logger.Debug("job store opened", "driver", cfg.Store.Driver)

	if cfg.Redis.URL != "" {
		a.connectCache(ctx)
	}

	metricsHandler, provider, shutdown, err := metrics.Init()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	a.metrics = metricsHandler
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
	recorder, err := metrics.New(provider)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	gatherer, err := a.gatherer()
	if err != nil {
		return nil, err
	}

	llmProviders, err := ai.NewProviders(cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("create AI providers: %w", err)
	}
	providers := make([]models.Provider, 0, len(llmProviders))
	for _, p := range llmProviders {
		providers = append(providers, p)
	}
	chain := ai.NewChain(providers, cfg.AI.Timeout, ai.WithLogger(logger))
	logger.Info("AI providers initialized", "chain", chain.Name())

	opts := []pipeline.Option{pipeline.WithRecorder(recorder), pipeline.WithLogger(logger)}
	if cfg.AI.Enhance {
		enhancerOpts := []ai.EnhancerOption{ai.WithEnhancerLogger(logger)}
		if len(llmProviders) > 0 {
			enhancerOpts = append(enhancerOpts, ai.WithTrendModel(llmProviders[0].LLM()))
		}
		opts = append(opts, pipeline.WithEnhancer(ai.NewEnhancer(cfg.Pipeline.EnhanceTimeout, enhancerOpts...)))
	}
	a.orch = pipeline.New(gatherer, chain, a.publisher(out), cfg.Pipeline, opts...)

	if a.policy, err = rotation.NewPolicy(cfg.Content); err != nil {
		return nil, err
	}
	if a.sched, err = scheduler.New(st, a.orch, a.policy, cfg.Scheduler, scheduler.WithLogger(logger)); err != nil {
		return nil, err
	}
	if err := recorder.ObserveJobs(a.sched.JobCounts); err != nil {
		return nil, fmt.Errorf("observe jobs: %w", err)
	}
	return a, nil
}

// connectCache attaches Redis when it answers. Without it research results are
// not cached and the API is not rate limited.
func (a *app) connectCache(ctx context.Context) {
	rc, err := cache.NewRedisCache(a.cfg.Redis.URL)
	if err != nil {
		a.logger.Warn("invalid redis url, continuing without cache", "error", err)
		return
	}
	if err := rc.Ping(ctx); err != nil {
		a.logger.Warn("redis unreachable, continuing without cache", "error", err)
		_ = rc.Close()
		return
	}
	a.cache = rc
	a.closers = append(a.closers, rc.Close)
	a.logger.Info("redis connected")
}

func (a *app) gatherer() (research.Gatherer, error) {
	sources, err := research.SourcesFromConfig(a.cfg.Research, research.DefaultRegistry())
	if err != nil {
		return nil, fmt.Errorf("research sources: %w", err)
	}
	var g research.Gatherer = research.NewAggregator(sources,
		research.WithMaxAge(a.cfg.Research.MaxAge),
		research.WithSourceTimeout(a.cfg.Research.SourceTimeout),
		research.WithLogger(a.logger),
	)
	if a.cache != nil {
		g = research.NewCachedGatherer(g, a.cache, a.cfg.Research.CacheTTL, a.logger)
	}
	return g, nil
}

func (a *app) publisher(out io.Writer) publish.Publisher {
	if a.cfg.PublishingEnabled() {
		return publish.NewLinkedInPublisher(a.cfg.LinkedIn, a.cfg.Pipeline.PublishTimeout)
	}
	if !a.cfg.LinkedIn.DryRun {
		a.logger.Warn("LinkedIn credentials not configured, posts will be printed instead of published")
	}
	return publish.NewDryRunPublisher(out, a.logger)
}

// runOnce runs the job named by arg, or an ad-hoc request for arg as a topic.
// An empty arg means the first configured topic.
func (a *app) runOnce(ctx context.Context, arg string, ct models.ContentType) (models.RunReport, error) {
	if arg != "" {
		_, err := a.sched.Status(ctx, arg)
		switch {
		case err == nil:
			if ct != "" {
				return models.RunReport{}, fmt.Errorf("--type cannot be used with job %q", arg)
			}
			return a.sched.RunNow(ctx, arg)
		case !errors.Is(err, scheduler.ErrJobNotFound):
			return models.RunReport{}, err
		}
	}

	topic := arg
	if topic == "" {
		topic = a.cfg.Content.Topics[0]
	}
	rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	decision := rotation.Decide(time.Now(), models.Job{Topic: topic, ContentType: ct}, a.policy, rnd)
	if arg != "" {
		// A topic named on the command line is never rotated away.
		decision.Topic, decision.Rotated = arg, false
	}
	return a.orch.Run(ctx, a.policy.Request(decision), ""), nil
}

// router builds the control API over the scheduler.
func (a *app) router() http.Handler {
	var cachePinger handler.Pinger
	if a.cache != nil {
		cachePinger = a.cache
	}
	auth := mw.NewAuth(a.cfg.Server.APITokenHash)
	if !auth.Enabled() {
		a.logger.Warn("POSTPILOT_API_TOKEN_HASH not set, mutating API routes are disabled")
	}

	return api.NewRouter(api.Dependencies{
		Auth:      auth,
		RateLimit: mw.NewRateLimit(a.cache, a.cfg.Server.RateLimitPerMinute, a.logger),
		Logger:    a.logger,

		HealthHandler: handler.NewHealthHandler(a.store, cachePinger),
		ListJobs:      handler.NewListJobsHandler(a.sched),
		GetJob:        handler.NewGetJobHandler(a.sched),
		TriggerJobs:   handler.NewTriggerHandler(a.sched),
		PauseJob:      handler.NewPauseJobHandler(a.sched),
		ResumeJob:     handler.NewResumeJobHandler(a.sched),
		Metrics:       a.metrics,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
