package research_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/research"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hotListing = `{"data": {"children": [
  {"data": {"title": "Pinned: weekly machine learning thread", "url": "https://reddit.com/pinned", "stickied": true, "score": 10}},
  {"data": {"title": "New open-source LLM tops the leaderboard", "url": "https://example.com/llm",
            "selftext": "Weights are on the hub.", "score": 2400, "num_comments": 310, "created_utc": 1736416800}},
  {"data": {"title": "Show me your desk setup", "url": "https://example.com/desk", "score": 50}},
  {"data": {"title": "Neural nets explained", "permalink": "/r/technology/comments/abc/neural", "score": 0}}
]}}`

func TestRedditSource_Fetch(t *testing.T) {
	var (
		mu     sync.Mutex
		paths  []string
		agents []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()
		if r.URL.Path == "/r/science/hot.json" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(hotListing))
	}))
	defer srv.Close()

	src := research.NewRedditSource(srv.URL, []string{"technology", "science"}, research.WithUserAgent("postpilot-test"))
	got, err := src.Fetch(context.Background(), "artificial intelligence")

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/r/technology/hot.json", "/r/science/hot.json"}, paths)
	assert.Equal(t, []string{"postpilot-test", "postpilot-test"}, agents)

	require.Len(t, got, 2)
	assert.Equal(t, "reddit/r/technology", got[0].Origin)
	assert.Equal(t, "New open-source LLM tops the leaderboard", got[0].Title)
	assert.Equal(t, "Weights are on the hub.", got[0].Excerpt)
	assert.True(t, got[0].PublishedAt.Equal(time.Unix(1736416800, 0)))
	assert.Greater(t, got[0].Relevance, 0.5)

	assert.Equal(t, srv.URL+"/r/technology/comments/abc/neural", got[1].URL)
	assert.Equal(t, 0.0, got[1].Relevance)
}

func TestRedditSource_AllSubredditsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := research.NewRedditSource(srv.URL, []string{"technology"})
	_, err := src.Fetch(context.Background(), "ai")

	assert.Error(t, err)
}
