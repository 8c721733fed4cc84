package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/mmcdole/gofeed"
)

// itemsPerFeed bounds how many entries are read from each feed.
const itemsPerFeed = 10

// RSSSource reads RSS, Atom and JSON feeds and keeps entries that mention
// the topic.
type RSSSource struct {
	feeds []string
	fetcher
}

func NewRSSSource(feeds []string, opts ...HTTPOption) *RSSSource {
	return &RSSSource{feeds: feeds, fetcher: newFetcher(opts)}
}

func (s *RSSSource) Name() string { return "rss" }

// Fetch reads every feed in turn. It fails only when no feed could be read.
func (s *RSSSource) Fetch(ctx context.Context, topic string) ([]models.SourceSnippet, error) {
	var (
		out     []models.SourceSnippet
		lastErr error
		ok      int
	)
	for _, feed := range s.feeds {
		if ctx.Err() != nil {
			break
		}
		items, err := s.readFeed(ctx, feed)
		if err != nil {
			lastErr = err
			continue
		}
		ok++
		for _, it := range items {
			if Relevant(it.Title+" "+it.Excerpt, topic) {
				out = append(out, it)
			}
		}
	}
	if ok == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (s *RSSSource) readFeed(ctx context.Context, url string) ([]models.SourceSnippet, error) {
	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}
	return feedSnippets(feed), nil
}

func feedSnippets(feed *gofeed.Feed) []models.SourceSnippet {
	items := feed.Items
	if len(items) > itemsPerFeed {
		items = items[:itemsPerFeed]
	}
	out := make([]models.SourceSnippet, 0, len(items))
	for _, it := range items {
		text := it.Description
		if text == "" {
			text = it.Content
		}
		out = append(out, models.SourceSnippet{
			Origin:      "rss",
			Title:       htmlText(it.Title),
			URL:         strings.TrimSpace(it.Link),
			Excerpt:     excerpt(htmlText(text)),
			PublishedAt: itemDate(it),
		})
	}
	return out
}

// itemDate returns the zero time for undated entries, which keeps the
// snippet through the freshness filter.
func itemDate(it *gofeed.Item) time.Time {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC()
	default:
		return time.Time{}
	}
}
