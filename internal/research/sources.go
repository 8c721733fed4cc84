package research

import (
	"fmt"

	"github.com/kiranshivaraju/postpilot/internal/config"
)

// SourcesFromConfig builds the configured sources, resolving page strategies
// through reg.
func SourcesFromConfig(cfg config.ResearchConfig, reg *Registry) ([]Source, error) {
	httpOpts := []HTTPOption{WithUserAgent(cfg.UserAgent)}

	var sources []Source
	if len(cfg.Feeds) > 0 {
		sources = append(sources, NewRSSSource(cfg.Feeds, httpOpts...))
	}
	if len(cfg.Subreddits) > 0 {
		sources = append(sources, NewRedditSource(DefaultRedditURL, cfg.Subreddits, httpOpts...))
	}
	if cfg.GitHubTrending {
		sources = append(sources, NewGitHubTrendingSource(DefaultGitHubURL, httpOpts...))
	}

	for _, page := range cfg.Pages {
		var strategy Strategy = NewSelectorStrategy(page)
		if page.Strategy != "" {
			s, err := reg.Resolve(page.Strategy)
			if err != nil {
				return nil, fmt.Errorf("page %s: %w", page.Name, err)
			}
			strategy = s
		}
		sources = append(sources, NewHTMLSource(page.Name, page.URL, strategy, WithHTTP(httpOpts...)))
	}
	return sources, nil
}
