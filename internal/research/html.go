package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// Strategy extracts snippets from one kind of HTML listing page.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, base *url.URL) []models.SourceSnippet
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

// DefaultRegistry holds the built-in page strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(GitHubTrendingStrategy{})
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(s Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[s.Name()] = s
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if s, ok := r.strategies[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("strategy %s is not registered", name)
}

// HTMLSource scrapes one listing page with a Strategy.
type HTMLSource struct {
	name       string
	pageURL    string
	strategy   Strategy
	unfiltered bool
	fetcher
}

// HTMLSourceOption customizes an HTMLSource.
type HTMLSourceOption func(*HTMLSource)

// Unfiltered keeps every extracted item instead of only those mentioning the topic.
func Unfiltered() HTMLSourceOption {
	return func(s *HTMLSource) { s.unfiltered = true }
}

// WithHTTP applies HTTP options to the source.
func WithHTTP(opts ...HTTPOption) HTMLSourceOption {
	return func(s *HTMLSource) {
		for _, opt := range opts {
			opt(&s.fetcher)
		}
	}
}

func NewHTMLSource(name, pageURL string, strategy Strategy, opts ...HTMLSourceOption) *HTMLSource {
	s := &HTMLSource{
		name:     name,
		pageURL:  pageURL,
		strategy: strategy,
		fetcher:  newFetcher(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTMLSource) Name() string { return s.name }

func (s *HTMLSource) Fetch(ctx context.Context, topic string) ([]models.SourceSnippet, error) {
	base, err := url.Parse(s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", s.name, err)
	}
	doc, err := s.document(ctx, s.pageURL)
	if err != nil {
		return nil, err
	}

	var out []models.SourceSnippet
	for _, sn := range s.strategy.Extract(doc, base) {
		if sn.Title == "" {
			continue
		}
		if sn.Origin == "" {
			sn.Origin = s.name
		}
		if s.unfiltered || Relevant(sn.Title+" "+sn.Excerpt, topic) {
			out = append(out, sn)
		}
	}
	return out, nil
}

// SelectorStrategy extracts items with configured CSS selectors.
type SelectorStrategy struct {
	name    string
	item    string
	title   string
	link    string
	excerpt string
}

func NewSelectorStrategy(page config.PageConfig) SelectorStrategy {
	return SelectorStrategy{
		name:    page.Name,
		item:    page.Item,
		title:   page.Title,
		link:    page.Link,
		excerpt: page.Excerpt,
	}
}

func (s SelectorStrategy) Name() string { return s.name }

func (s SelectorStrategy) Extract(doc *goquery.Document, base *url.URL) []models.SourceSnippet {
	var out []models.SourceSnippet
	doc.Find(s.item).Each(func(_ int, item *goquery.Selection) {
		titleSel := item.Find(s.title).First()
		sn := models.SourceSnippet{Title: collapse(titleSel.Text())}

		linkSel := titleSel
		if s.link != "" {
			linkSel = item.Find(s.link).First()
		}
		if href, ok := linkSel.Attr("href"); ok {
			sn.URL = resolve(base, href)
		}
		if s.excerpt != "" {
			sn.Excerpt = excerpt(item.Find(s.excerpt).First().Text())
		}
		out = append(out, sn)
	})
	return out
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
