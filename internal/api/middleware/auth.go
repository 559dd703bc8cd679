package middleware

import (
	"net/http"
	"strings"

	"github.com/anahq/ana/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

const tokenPrefixLen = 8

// Auth validates bearer tokens against a configured bcrypt hash. An empty
// hash disables authentication, for local development.
type Auth struct {
	tokenHash string
}

// NewAuth creates a new Auth middleware.
func NewAuth(tokenHash string) *Auth {
	return &Auth{tokenHash: tokenHash}
}

// Authenticate validates the Bearer token and tags the request context with
// the token prefix used as the rate-limit identity.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.tokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(a.tokenHash), []byte(token)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API token", nil)
			return
		}

		r = r.WithContext(SetTokenPrefix(r.Context(), tokenPrefix(token)))
		next.ServeHTTP(w, r)
	})
}

func tokenPrefix(token string) string {
	if len(token) <= tokenPrefixLen {
		return token
	}
	return token[:tokenPrefixLen]
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
