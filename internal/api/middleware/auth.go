package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/postpilot/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

// Auth guards mutating routes with a single bcrypt-hashed bearer token.
type Auth struct {
	hash []byte
}

// NewAuth creates the middleware. An empty hash disables guarded routes.
func NewAuth(tokenHash string) *Auth {
	return &Auth{hash: []byte(strings.TrimSpace(tokenHash))}
}

// Enabled reports whether a token hash is configured.
func (a *Auth) Enabled() bool { return len(a.hash) > 0 }

// Authenticate validates the Bearer token and records the caller identity
// in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			response.Error(w, http.StatusForbidden,
				response.CodeForbidden, "Mutating endpoints are disabled: POSTPILOT_API_TOKEN_HASH is not set", nil)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				response.CodeInvalidToken, "Missing or invalid Authorization header", nil)
			return
		}

		if bcrypt.CompareHashAndPassword(a.hash, []byte(token)) != nil {
			response.Error(w, http.StatusUnauthorized,
				response.CodeInvalidToken, "Invalid API token", nil)
			return
		}

		sum := sha256.Sum256([]byte(token))
		next.ServeHTTP(w, r.WithContext(setClient(r.Context(), hex.EncodeToString(sum[:4]))))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
