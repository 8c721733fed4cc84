package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const clientKey contextKey = "client"

// setClient records the authenticated caller for rate limiting.
func setClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, clientKey, client)
}

// GetClient returns the caller identity set by Authenticate.
func GetClient(r *http.Request) (string, bool) {
	client, ok := r.Context().Value(clientKey).(string)
	return client, ok
}
