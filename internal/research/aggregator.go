// Package research gathers recent source material for a topic from feeds,
// forums and scraped pages, and ranks it by relevance.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
	"golang.org/x/sync/errgroup"
)

// ErrAllSourcesFailed is returned when every registered source errored.
var ErrAllSourcesFailed = errors.New("research: all sources failed")

// Source is one place research snippets come from.
type Source interface {
	Name() string
	Fetch(ctx context.Context, topic string) ([]models.SourceSnippet, error)
}

// Gatherer returns ranked snippets for a topic.
type Gatherer interface {
	Gather(ctx context.Context, topic string, maxSources int) ([]models.SourceSnippet, error)
}

// Aggregator fans out to its sources and merges their results.
type Aggregator struct {
	sources []Source
	maxAge  time.Duration
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithMaxAge drops snippets published longer ago than d. Zero disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(a *Aggregator) { a.maxAge = d }
}

// WithSourceTimeout bounds each source call.
func WithSourceTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithClock overrides the time source used for freshness and recency.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(sources []Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: sources,
		maxAge:  7 * 24 * time.Hour,
		timeout: 20 * time.Second,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Gather queries every source concurrently. A failing source is logged and
// skipped; zero results is an empty slice, not an error.
func (a *Aggregator) Gather(ctx context.Context, topic string, maxSources int) ([]models.SourceSnippet, error) {
	var (
		mu       sync.Mutex
		all      []models.SourceSnippet
		failures int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.sources {
		g.Go(func() error {
			snippets, err := a.fetch(gctx, src, topic)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				a.logger.Warn("research source failed", "source", src.Name(), "topic", topic, "error", err)
				return nil
			}
			a.logger.Debug("research source done", "source", src.Name(), "count", len(snippets))
			all = append(all, snippets...)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(a.sources) > 0 && failures == len(a.sources) {
		return nil, ErrAllSourcesFailed
	}

	return Rank(topic, all, maxSources, a.maxAge, a.now()), nil
}

func (a *Aggregator) fetch(ctx context.Context, src Source, topic string) (snippets []models.SourceSnippet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in source %s: %v", src.Name(), r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return src.Fetch(ctx, topic)
}

// MinRelevance is the lowest topic score a snippet may have and still be
// kept. It is checked before source popularity is blended in, so popular or
// fresh items that barely mention the topic are dropped.
const MinRelevance = 0.15

// Rank scores, freshness-filters, deduplicates and orders snippets, keeping at
// most maxSources. Snippets scoring below MinRelevance are dropped. Two
// snippets are duplicates when their normalized titles or normalized URLs
// match; the higher scoring one is kept. The result is never nil.
func Rank(topic string, snippets []models.SourceSnippet, maxSources int, maxAge time.Duration, now time.Time) []models.SourceSnippet {
	var (
		out     = make([]models.SourceSnippet, 0, len(snippets))
		byTitle = make(map[string]int, len(snippets))
		byURL   = make(map[string]int, len(snippets))
	)

	for _, s := range snippets {
		if maxAge > 0 && !s.PublishedAt.IsZero() && now.Sub(s.PublishedAt) > maxAge {
			continue
		}
		title := NormalizeTitle(s.Title)
		if title == "" {
			continue
		}
		topical := s
		topical.Relevance = 0
		if Score(topic, topical, now) < MinRelevance {
			continue
		}
		s.Relevance = Score(topic, s, now)

		link := NormalizeURL(s.URL)
		i, seen := byTitle[title]
		if !seen && link != "" {
			i, seen = byURL[link]
		}
		if !seen {
			i = len(out)
			out = append(out, s)
		} else if s.Relevance > out[i].Relevance {
			out[i] = s
		}
		byTitle[title] = i
		if link != "" {
			byURL[link] = i
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if maxSources > 0 && len(out) > maxSources {
		out = out[:maxSources]
	}
	return out
}
