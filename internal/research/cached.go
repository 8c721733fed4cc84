package research

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/cache"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// CachedGatherer serves repeated research for the same topic from the cache.
// Cache failures are logged and bypassed; they never fail a gather.
type CachedGatherer struct {
	inner  Gatherer
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedGatherer(inner Gatherer, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedGatherer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGatherer{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func (g *CachedGatherer) Gather(ctx context.Context, topic string, maxSources int) ([]models.SourceSnippet, error) {
	key := cache.ResearchKey(topic, maxSources)

	data, found, err := g.cache.Get(ctx, key)
	switch {
	case err != nil:
		g.logger.Warn("research cache read failed", "key", key, "error", err)
	case found:
		var snippets []models.SourceSnippet
		if err := json.Unmarshal(data, &snippets); err == nil {
			g.logger.Debug("research cache hit", "topic", topic, "count", len(snippets))
			return snippets, nil
		}
		g.logger.Warn("research cache entry corrupt", "key", key)
	}

	snippets, err := g.inner.Gather(ctx, topic, maxSources)
	if err != nil {
		return nil, err
	}
	// Empty results are not cached so the next run searches again.
	if len(snippets) == 0 {
		return snippets, nil
	}

	data, err = json.Marshal(snippets)
	if err == nil {
		err = g.cache.Set(ctx, key, data, g.ttl)
	}
	if err != nil {
		g.logger.Warn("research cache write failed", "key", key, "error", err)
	}
	return snippets, nil
}
