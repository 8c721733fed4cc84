package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const defaultUserAgent = "postpilot/1.0"

// fetcher is the HTTP plumbing shared by every source.
type fetcher struct {
	client    *http.Client
	userAgent string
}

// HTTPOption customizes how a source talks HTTP.
type HTTPOption func(*fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header. Reddit rejects generic agents.
func WithUserAgent(ua string) HTTPOption {
	return func(f *fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

func newFetcher(opts []HTTPOption) fetcher {
	f := fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// get performs a GET and returns the body of a 200 response.
func (f fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

func (f fetcher) document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// htmlText flattens an HTML fragment to plain text.
func htmlText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return collapse(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// maxExcerptRunes bounds excerpts kept from any source.
const maxExcerptRunes = 400

func excerpt(s string) string {
	s = collapse(s)
	if utf8.RuneCountInString(s) <= maxExcerptRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxExcerptRunes])) + "…"
}
