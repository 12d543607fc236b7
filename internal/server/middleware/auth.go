package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/internal/server/response"
)

// AuthConfig configures API-key authentication.
type AuthConfig struct {
	Enabled     bool
	APIKey      string
	HeaderName  string
	QueryParam  string
	PublicPaths []string
}

// DefaultAuthConfig returns a disabled configuration that accepts the key
// in the Authorization header as a bearer token, in X-API-Key, or in the
// api_key query parameter.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		HeaderName:  "X-API-Key",
		QueryParam:  "api_key",
		PublicPaths: []string{"/health", "/ready"},
	}
}

// Auth rejects requests to non-public paths that do not carry the
// configured API key.
func Auth(config AuthConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled || isPublicPath(r.URL.Path, config.PublicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			key := extractAPIKey(r, config)
			if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(config.APIKey)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("key_provided", key != "").
					Msg("Authentication failed")
				response.Unauthorized(w, "Invalid or missing API key",
					"Send the key as a bearer token or in the "+config.HeaderName+" header")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// extractAPIKey looks in the custom header, then Authorization, then the
// query string.
func extractAPIKey(r *http.Request, config AuthConfig) string {
	if config.HeaderName != "" {
		if key := r.Header.Get(config.HeaderName); key != "" {
			return key
		}
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if key, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(key)
		}
		return auth
	}
	if config.QueryParam != "" {
		return r.URL.Query().Get(config.QueryParam)
	}
	return ""
}
