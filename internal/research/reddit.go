package research

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// DefaultRedditURL is the public Reddit JSON API host.
const DefaultRedditURL = "https://www.reddit.com"

// RedditSource reads the hot listing of each subreddit.
type RedditSource struct {
	baseURL    string
	subreddits []string
	limit      int
	fetcher
}

func NewRedditSource(baseURL string, subreddits []string, opts ...HTTPOption) *RedditSource {
	if baseURL == "" {
		baseURL = DefaultRedditURL
	}
	return &RedditSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		subreddits: subreddits,
		limit:      10,
		fetcher:    newFetcher(opts),
	}
}

func (s *RedditSource) Name() string { return "reddit" }

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
}

// Fetch reads every subreddit in turn. It fails only when none could be read.
func (s *RedditSource) Fetch(ctx context.Context, topic string) ([]models.SourceSnippet, error) {
	var (
		out     []models.SourceSnippet
		lastErr error
		ok      int
	)
	for _, sub := range s.subreddits {
		if ctx.Err() != nil {
			break
		}
		posts, err := s.hot(ctx, sub)
		if err != nil {
			lastErr = err
			continue
		}
		ok++
		for _, p := range posts {
			if p.Stickied || !Relevant(p.Title+" "+p.Selftext, topic) {
				continue
			}
			out = append(out, s.snippet(sub, p))
		}
	}
	if ok == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (s *RedditSource) hot(ctx context.Context, sub string) ([]redditPost, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s/r/%s/hot.json?limit=%d", s.baseURL, sub, s.limit))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var listing redditListing
	if err := json.NewDecoder(body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode r/%s: %w", sub, err)
	}
	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, c := range listing.Data.Children {
		posts = append(posts, c.Data)
	}
	return posts, nil
}

func (s *RedditSource) snippet(sub string, p redditPost) models.SourceSnippet {
	url := p.URL
	if url == "" && p.Permalink != "" {
		url = s.baseURL + p.Permalink
	}
	var published time.Time
	if p.CreatedUTC > 0 {
		published = time.Unix(int64(p.CreatedUTC), 0).UTC()
	}
	return models.SourceSnippet{
		Origin:      "reddit/r/" + sub,
		Title:       collapse(p.Title),
		URL:         url,
		Excerpt:     excerpt(p.Selftext),
		PublishedAt: published,
		Relevance:   popularity(p.Score + p.NumComments),
	}
}

// popularity maps an engagement count onto [0,1] logarithmically;
// 10k interactions saturate.
func popularity(n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(1, math.Log10(float64(n)+1)/4)
}
