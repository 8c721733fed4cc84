package research_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/research"
	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	name     string
	snippets []models.SourceSnippet
	err      error
	delay    time.Duration
	panics   bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, _ string) ([]models.SourceSnippet, error) {
	if f.panics {
		panic("scraper blew up")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.snippets, f.err
}

func newAggregator(sources ...research.Source) *research.Aggregator {
	return research.NewAggregator(sources,
		research.WithClock(func() time.Time { return now }),
		research.WithSourceTimeout(100*time.Millisecond),
		research.WithLogger(discardLogger()),
	)
}

func TestAggregator_MergesAndSkipsFailingSources(t *testing.T) {
	good := &fakeSource{name: "good", snippets: []models.SourceSnippet{
		{Origin: "rss", Title: "Quantum computing hits milestone", PublishedAt: now.Add(-time.Hour)},
	}}
	other := &fakeSource{name: "other", snippets: []models.SourceSnippet{
		{Origin: "reddit", Title: "Quantum computing startups raise money"},
	}}
	broken := &fakeSource{name: "broken", err: errors.New("503")}
	panicky := &fakeSource{name: "panicky", panics: true}
	slow := &fakeSource{name: "slow", delay: time.Second, snippets: []models.SourceSnippet{{Title: "late"}}}

	got, err := newAggregator(good, other, broken, panicky, slow).Gather(context.Background(), "quantum computing", 5)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Quantum computing hits milestone", got[0].Title)
	assert.GreaterOrEqual(t, got[0].Relevance, got[1].Relevance)
}

func TestAggregator_AllSourcesFailed(t *testing.T) {
	agg := newAggregator(
		&fakeSource{name: "a", err: errors.New("down")},
		&fakeSource{name: "b", err: errors.New("down")},
	)

	_, err := agg.Gather(context.Background(), "ai", 5)

	assert.ErrorIs(t, err, research.ErrAllSourcesFailed)
}

func TestAggregator_NoResultsIsEmptyNotError(t *testing.T) {
	got, err := newAggregator(&fakeSource{name: "empty"}).Gather(context.Background(), "ai", 5)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregator_NoSources(t *testing.T) {
	got, err := newAggregator().Gather(context.Background(), "ai", 5)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAggregator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAggregator(&fakeSource{name: "a"}).Gather(ctx, "ai", 5)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank(t *testing.T) {
	snippets := []models.SourceSnippet{
		{Origin: "reddit", Title: "Quantum Computing Hits Milestone!", Relevance: 0.5, PublishedAt: now.Add(-48 * time.Hour)},
		{Origin: "rss", Title: "Quantum computing hits milestone - TechCrunch", PublishedAt: now.Add(-time.Hour)},
		{Origin: "rss", Title: "New chip design", Excerpt: "A quantum computing lab", PublishedAt: now.Add(-10 * 24 * time.Hour)},
		{Origin: "rss", Title: "Startups raise money", Excerpt: "Quantum computing startups raised a record round."},
		{Origin: "rss", Title: "Weather today"},
		{Origin: "rss", Title: "   "},
	}

	got := research.Rank("quantum computing", snippets, 3, 7*24*time.Hour, now)

	require.Len(t, got, 2, "stale, off-topic and blank snippets are dropped")
	assert.Equal(t, "Quantum computing hits milestone - TechCrunch", got[0].Title)
	assert.InDelta(t, 0.9, got[0].Relevance, 1e-9)
	assert.Equal(t, "Startups raise money", got[1].Title)
	assert.InDelta(t, 0.5, got[1].Relevance, 1e-9)
}

func TestRank_TiesOrderedByRecency(t *testing.T) {
	snippets := []models.SourceSnippet{
		{Title: "Alpha report", PublishedAt: now.Add(-5 * 24 * time.Hour)},
		{Title: "Beta report", PublishedAt: now.Add(-4 * 24 * time.Hour)},
	}

	got := research.Rank("report", snippets, 5, 0, now)

	require.Len(t, got, 2)
	assert.Equal(t, got[0].Relevance, got[1].Relevance)
	assert.Equal(t, "Beta report", got[0].Title)
}

func TestRank_DropsWeakMatchesAndDuplicateLinks(t *testing.T) {
	snippets := []models.SourceSnippet{
		{Origin: "github", Title: "awesome-css-tricks", URL: "https://github.com/someone/awesome-css-tricks", Relevance: 1, PublishedAt: now.Add(-time.Hour)},
		{Origin: "rss", Title: "Quantum computing sets a qubit record", URL: "https://e.com/q", PublishedAt: now.Add(-2 * time.Hour)},
		{Origin: "reddit", Title: "Researchers report quantum computing breakthrough", URL: "https://www.E.com/q/?utm_source=reddit"},
		{Origin: "rss", Title: "Error correction for quantum computing", URL: "https://f.com/ec"},
	}

	got := research.Rank("quantum computing", snippets, 5, 0, now)

	require.Len(t, got, 2)
	assert.Equal(t, "Quantum computing sets a qubit record", got[0].Title)
	assert.Equal(t, "Error correction for quantum computing", got[1].Title)
	for _, s := range got {
		assert.GreaterOrEqual(t, s.Relevance, research.MinRelevance)
	}
}

func TestRank_DuplicateLinkKeepsHigherScore(t *testing.T) {
	snippets := []models.SourceSnippet{
		{Origin: "reddit", Title: "Thread about quantum stuff", Excerpt: "quantum computing", URL: "https://e.com/q"},
		{Origin: "rss", Title: "Quantum computing sets a qubit record", URL: "http://e.com/q#comments"},
	}

	got := research.Rank("quantum computing", snippets, 5, 0, now)

	require.Len(t, got, 1)
	assert.Equal(t, "rss", got[0].Origin)
}

func TestRank_EmptyInput(t *testing.T) {
	got := research.Rank("ai", nil, 5, time.Hour, now)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
