package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/security/audit"
	"github.com/superplace/rosterd/internal/security/auth"
	"github.com/superplace/rosterd/internal/security/ratelimit"
)

type CallerContextKey struct{}
type ClaimsContextKey struct{}

// protectedPrefixes are paths that refuse anonymous requests outright.
// The roster endpoint is deliberately absent: legacy probe clients send no
// Authorization header and identify themselves via query parameters, and the
// access scoper fails closed for them anyway.
var protectedPrefixes = []string{"/api/academies"}

func requiresAuth(path string) bool {
	for _, p := range protectedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// CallerMiddleware derives the caller context from the bearer token when one
// is presented. A malformed token is always rejected; a missing token is
// rejected only on protected paths.
func CallerMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if requiresAuth(r.URL.Path) {
					http.Error(w, `{"success":false,"message":"missing auth"}`, http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"success":false,"message":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ParseAnyToken(tokenString)
			if err != nil {
				log.Warn("token rejected", slog.String("error", err.Error()))
				http.Error(w, `{"success":false,"message":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			role, err := domain.ParseRole(claims.Role)
			if err != nil {
				http.Error(w, `{"success":false,"message":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			caller := domain.Caller{
				AccountID: claims.UserID,
				Email:     claims.Email,
				Role:      role,
				TenantID:  claims.TenantID,
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, CallerContextKey{}, caller)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware applies the general per-tenant limit. Anonymous
// requests are keyed by client address so that signup storms from one host
// cannot starve everyone.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := ""
			if c, ok := r.Context().Value(CallerContextKey{}).(domain.Caller); ok && c.TenantID != "" {
				key = c.TenantID
			} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = "addr:" + host
			}

			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", slog.String("key", key), slog.String("path", r.URL.Path))
				http.Error(w, `{"success":false,"message":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records identity-sensitive operations
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, _ := r.Context().Value(CallerContextKey{}).(domain.Caller)

			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup":
				auditLog.LogSignup(r.Context(), caller.TenantID, caller.AccountID, "initiated", "")
			case r.Method == http.MethodGet && r.URL.Path == "/api/students":
				auditLog.LogRosterQuery(r.Context(), caller.TenantID, caller.AccountID, "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetCallerFromContext returns the caller derived by CallerMiddleware, if any
func GetCallerFromContext(ctx context.Context) (domain.Caller, bool) {
	c, ok := ctx.Value(CallerContextKey{}).(domain.Caller)
	return c, ok
}

// GetClaimsFromContext returns the raw token claims, if any
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
