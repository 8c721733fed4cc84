package publish_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/kiranshivaraju/postpilot/internal/publish"
	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artifact() models.ContentArtifact {
	return models.ContentArtifact{
		Headline: "Five things about edge AI",
		Sections: []models.Section{{Body: "Inference is moving to devices."}},
		Hashtags: []string{"#EdgeAI"},
	}
}

func newPublisher(url string) *publish.LinkedInPublisher {
	return publish.NewLinkedInPublisher(config.LinkedInConfig{
		BaseURL:           url,
		AccessToken:       "tok-123",
		PersonID:          "abc",
		RequestsPerMinute: 6000,
	}, 5*time.Second)
}

func TestLinkedInPublisher_Success(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/ugcPosts", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "urn:li:share:7001"}`))
	}))
	defer srv.Close()

	id, err := newPublisher(srv.URL).Publish(context.Background(), artifact())

	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:7001", id)
	assert.Equal(t, "urn:li:person:abc", captured["author"])
	assert.Equal(t, "PUBLISHED", captured["lifecycleState"])

	share := captured["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
	text := share["shareCommentary"].(map[string]any)["text"].(string)
	assert.True(t, strings.HasPrefix(text, "Five things about edge AI"))
	assert.Contains(t, text, "#EdgeAI")
	assert.Equal(t, "PUBLIC", captured["visibility"].(map[string]any)["com.linkedin.ugc.MemberNetworkVisibility"])
}

func TestLinkedInPublisher_IDFromHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RestLi-Id", "urn:li:share:42")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	id, err := newPublisher(srv.URL).Publish(context.Background(), artifact())

	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:42", id)
}

func TestLinkedInPublisher_StatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		want      error
		reason    string
		retryable bool
	}{
		{http.StatusUnauthorized, `{"message": "Expired access token", "status": 401}`, publish.ErrAuthExpired, "AuthExpired", false},
		{http.StatusTooManyRequests, ``, publish.ErrRateLimited, "RateLimited", true},
		{http.StatusUnprocessableEntity, `{"message": "Content is a duplicate"}`, publish.ErrRejected, "Rejected", false},
		{http.StatusForbidden, ``, publish.ErrRejected, "Rejected", false},
		{http.StatusBadGateway, ``, publish.ErrNetwork, "Network", true},
		{http.StatusCreated, `{}`, publish.ErrRejected, "Rejected", false},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newPublisher(srv.URL).Publish(context.Background(), artifact())

			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.reason, publish.Reason(err))
			assert.Equal(t, tc.retryable, publish.Retryable(err))
		})
	}
}

func TestLinkedInPublisher_APIMessageInError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Expired access token"}`))
	}))
	defer srv.Close()

	_, err := newPublisher(srv.URL).Publish(context.Background(), artifact())

	assert.ErrorContains(t, err, "Expired access token")
}

func TestLinkedInPublisher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newPublisher(url).Publish(context.Background(), artifact())

	assert.ErrorIs(t, err, publish.ErrNetwork)
}

func TestLinkedInPublisher_EmptyArtifactNotSent(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	_, err := newPublisher(srv.URL).Publish(context.Background(), models.ContentArtifact{Headline: "only"})

	assert.ErrorIs(t, err, publish.ErrRejected)
	assert.False(t, called)
}

func TestLinkedInPublisher_RateLimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "urn:li:share:1"}`))
	}))
	defer srv.Close()

	p := publish.NewLinkedInPublisher(config.LinkedInConfig{
		BaseURL: srv.URL, AccessToken: "t", PersonID: "p", RequestsPerMinute: 1,
	}, time.Second)

	_, err := p.Publish(context.Background(), artifact())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Publish(ctx, artifact())
	assert.ErrorIs(t, err, publish.ErrNetwork)
	assert.NotErrorIs(t, err, publish.ErrRateLimited)
	assert.Equal(t, "Network", publish.Reason(err))

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	_, err = p.Publish(cancelled, artifact())
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, publish.ErrNetwork)
}

func TestDryRunPublisher(t *testing.T) {
	var out bytes.Buffer
	p := publish.NewDryRunPublisher(&out, slog.New(slog.NewTextHandler(io.Discard, nil)))

	id, err := p.Publish(context.Background(), artifact())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "dryrun-"))
	assert.Contains(t, out.String(), "Five things about edge AI")
	assert.Len(t, p.Published(), 1)

	_, err = p.Publish(context.Background(), models.ContentArtifact{})
	assert.ErrorIs(t, err, publish.ErrRejected)
}

func TestReason_Nil(t *testing.T) {
	assert.Empty(t, publish.Reason(nil))
	assert.False(t, publish.Retryable(nil))
}
