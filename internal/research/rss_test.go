package research_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/research"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Tech</title>
  <item>
    <title>Quantum computing race heats up</title>
    <link>https://example.com/quantum</link>
    <description><![CDATA[<p>The <b>quantum computing</b> race heats up.</p>]]></description>
    <pubDate>Mon, 06 Jan 2025 10:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Smartphone sales dip</title>
    <link>https://example.com/phones</link>
    <description>Phones are not selling.</description>
    <pubDate>Mon, 06 Jan 2025 11:00:00 +0000</pubDate>
  </item>
</channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Lab notes</title>
  <entry>
    <title>Error correction for quantum computing</title>
    <link rel="alternate" href="https://example.org/qec"/>
    <summary>Logical qubits at last.</summary>
    <published>2025-01-07T08:30:00Z</published>
  </entry>
</feed>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	})
	mux.HandleFunc("/atom", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(atomFeed))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<rss><channel><item>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSSource_FetchFiltersByTopic(t *testing.T) {
	srv := feedServer(t)
	src := research.NewRSSSource([]string{srv.URL + "/rss", srv.URL + "/broken", srv.URL + "/atom"})

	got, err := src.Fetch(context.Background(), "quantum computing")

	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "rss", got[0].Origin)
	assert.Equal(t, "Quantum computing race heats up", got[0].Title)
	assert.Equal(t, "https://example.com/quantum", got[0].URL)
	assert.Equal(t, "The quantum computing race heats up.", got[0].Excerpt)
	assert.True(t, got[0].PublishedAt.Equal(time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Error correction for quantum computing", got[1].Title)
	assert.Equal(t, "https://example.org/qec", got[1].URL)
	assert.True(t, got[1].PublishedAt.Equal(time.Date(2025, 1, 7, 8, 30, 0, 0, time.UTC)))
}

func TestRSSSource_AllFeedsBroken(t *testing.T) {
	srv := feedServer(t)
	src := research.NewRSSSource([]string{srv.URL + "/broken", srv.URL + "/garbage"})

	_, err := src.Fetch(context.Background(), "quantum computing")

	assert.Error(t, err)
}

func TestRSSSource_SendsUserAgent(t *testing.T) {
	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	src := research.NewRSSSource([]string{srv.URL}, research.WithUserAgent("postpilot-test/1.0"))
	_, err := src.Fetch(context.Background(), "anything")

	require.NoError(t, err)
	assert.Equal(t, "postpilot-test/1.0", <-agents)
}

func TestRSSSource_DublinCoreDatesAndItemLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/"><channel><title>Q</title>`)
	for i := 1; i <= 15; i++ {
		fmt.Fprintf(&b, `<item><title>Quantum update %d</title><link>https://example.com/%d</link><dc:date>2025-01-0%dT09:00:00Z</dc:date></item>`, i, i, min(i, 9))
	}
	b.WriteString(`</channel></rss>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	got, err := research.NewRSSSource([]string{srv.URL}).Fetch(context.Background(), "quantum")

	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "Quantum update 1", got[0].Title)
	assert.True(t, got[0].PublishedAt.Equal(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)))
}
