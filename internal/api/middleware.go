package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/terra-clan/quest-ledger/internal/ledger"
)

// AuthMiddleware turns bearer tokens into ledger callers
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate verifies the bearer token when one is present.
// Requests without a token continue anonymously; reads are public and the
// ledger rejects anonymous writes on its own.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		if m.verifier == nil {
			respondError(w, http.StatusUnauthorized, "invalid_token", "token authentication is not configured")
			return
		}

		principal, err := m.verifier.Verify(token)
		if err != nil {
			slog.Warn("invalid token attempt", "error", err, "token_prefix", maskToken(token), "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_token", "the provided token is not valid")
			return
		}

		slog.Debug("authenticated request", "principal", principal)

		ctx := ledger.WithCaller(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCaller rejects requests that did not present a valid token
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := callerFromRequest(r); !ok {
			respondError(w, http.StatusUnauthorized, "not_authenticated", "provide Authorization header with Bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearer extracts the token from the Authorization header
func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return strings.TrimSpace(authHeader)
}

// maskToken returns first 8 chars of token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}
