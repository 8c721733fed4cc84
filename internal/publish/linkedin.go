package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/kiranshivaraju/postpilot/pkg/models"
	"golang.org/x/time/rate"
)

// maxCommentaryRunes is LinkedIn's share commentary limit.
const maxCommentaryRunes = 3000

// LinkedInPublisher creates UGC posts through the LinkedIn v2 API.
type LinkedInPublisher struct {
	baseURL  string
	token    string
	personID string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewLinkedInPublisher creates a publisher limited to cfg.RequestsPerMinute calls.
func NewLinkedInPublisher(cfg config.LinkedInConfig, timeout time.Duration) *LinkedInPublisher {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &LinkedInPublisher{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.AccessToken,
		personID: cfg.PersonID,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

func (p *LinkedInPublisher) Name() string { return "linkedin" }

func (p *LinkedInPublisher) Publish(ctx context.Context, artifact models.ContentArtifact) (string, error) {
	if artifact.IsEmpty() {
		return "", fmt.Errorf("%w: empty post body", ErrRejected)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit wait: %w", ErrNetwork, err)
	}

	body, err := json.Marshal(p.ugcPost(artifact))
	if err != nil {
		return "", fmt.Errorf("encoding post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusCreated:
		var created struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(respBody, &created)
		id := created.ID
		if id == "" {
			id = resp.Header.Get("X-RestLi-Id")
		}
		if id == "" {
			return "", fmt.Errorf("%w: created response carried no post id", ErrRejected)
		}
		return id, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return "", fmt.Errorf("%w: %s", ErrAuthExpired, apiMessage(resp.StatusCode, respBody))
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrRateLimited, apiMessage(resp.StatusCode, respBody))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("%w: %s", ErrRejected, apiMessage(resp.StatusCode, respBody))
	default:
		return "", fmt.Errorf("%w: %s", ErrNetwork, apiMessage(resp.StatusCode, respBody))
	}
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type shareContent struct {
	ShareCommentary    textValue `json:"shareCommentary"`
	ShareMediaCategory string    `json:"shareMediaCategory"`
}

type textValue struct {
	Text string `json:"text"`
}

func (p *LinkedInPublisher) ugcPost(a models.ContentArtifact) ugcPost {
	return ugcPost{
		Author:         "urn:li:person:" + p.personID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": {
				ShareCommentary:    textValue{Text: truncateRunes(a.Body(), maxCommentaryRunes)},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
}

// apiMessage extracts LinkedIn's error message, falling back to the status.
func apiMessage(status int, body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Sprintf("status %d: %s", status, apiErr.Message)
	}
	return fmt.Sprintf("status %d", status)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ Publisher = (*LinkedInPublisher)(nil)
