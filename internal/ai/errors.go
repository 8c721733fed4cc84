package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrProviderTimeout     = errors.New("ai provider timeout")
	ErrProviderRejected    = errors.New("ai provider rejected request")
	ErrMalformedOutput     = errors.New("ai provider returned malformed output")
)

// rejectionMarkers are substrings of provider errors that mean the request
// will keep failing until credentials or billing change.
var rejectionMarkers = []string{
	"credit balance",
	"rate limit",
	"quota",
	"billing",
	"invalid api key",
	"invalid_api_key",
	"authentication",
	"unauthorized",
	"401",
	"403",
	"429",
}

// Classify wraps err with the matching provider sentinel so callers can use errors.Is.
// Errors that already carry a sentinel pass through unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrProviderTimeout),
		errors.Is(err, ErrProviderRejected),
		errors.Is(err, ErrMalformedOutput):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrProviderRejected, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// Reason returns a short label for a provider failure, used in run reports and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderTimeout):
		return "ProviderTimeout"
	case errors.Is(err, ErrProviderRejected):
		return "ProviderRejected"
	case errors.Is(err, ErrMalformedOutput):
		return "ProviderMalformedOutput"
	default:
		return "ProviderUnavailable"
	}
}
