// Package publish delivers finished artifacts to LinkedIn.
package publish

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// Sentinel errors for publish failures.
var (
	ErrAuthExpired = errors.New("publish: auth expired")
	ErrRateLimited = errors.New("publish: rate limited")
	ErrRejected    = errors.New("publish: rejected")
	ErrNetwork     = errors.New("publish: network error")
)

// Publisher posts an artifact and returns the platform's post id.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, artifact models.ContentArtifact) (string, error)
}

// Reason returns the short failure name used in run reports.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthExpired):
		return "AuthExpired"
	case errors.Is(err, ErrRateLimited):
		return "RateLimited"
	case errors.Is(err, ErrRejected):
		return "Rejected"
	default:
		return "Network"
	}
}

// Retryable reports whether a later attempt may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}
