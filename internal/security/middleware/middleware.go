package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/civictrack/internal/security/audit"
	"github.com/yourorg/civictrack/internal/security/auth"
	"github.com/yourorg/civictrack/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// isPublic reports whether a request requires no bearer token. Citizen
// complaint intake is public for POST only; listing the same path needs
// auth.
func isPublic(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics", "/api/health", "/api/auth/login", "/api/employees":
		return true
	case "/api/complaints":
		return r.Method == http.MethodPost
	}
	return false
}

// JWTMiddleware validates bearer tokens and stores the claims in the
// request context. Employee resolution happens in the handlers so a
// deleted or deactivated record still fails closed.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("error", err.Error()))
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware limits authenticated traffic per employee and
// applies stricter per-address limits on the unauthenticated endpoints
// (login, employee creation, citizen intake).
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics", "/api/health":
				next.ServeHTTP(w, r)
				return
			}

			if isPublic(r) {
				if !limiter.AllowStrict(r.RemoteAddr, 20, ratelimit.StrictWindow) {
					log.Warn("rate limit exceeded on public endpoint",
						slog.String("path", r.URL.Path),
						slog.String("remote", r.RemoteAddr),
					)
					http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			key := ""
			if c := GetClaimsFromContext(r.Context()); c != nil {
				key = c.EmployeeID
			}

			if !limiter.Allow(key) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records the initiation of mutating complaint actions.
// Handlers record the outcome separately.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			employeeID := ""
			if c := GetClaimsFromContext(r.Context()); c != nil {
				employeeID = c.EmployeeID
			}

			if rest, ok := strings.CutPrefix(r.URL.Path, "/api/complaints/"); ok && rest != "" {
				complaintID, sub, _ := strings.Cut(rest, "/")
				switch {
				case r.Method == http.MethodPut && sub == "":
					auditLog.LogAction(r.Context(), employeeID, "update", "complaint", complaintID, "initiated", "")
				case r.Method == http.MethodPost && sub == "progress-photo":
					auditLog.LogAction(r.Context(), employeeID, "progress_photo", "complaint", complaintID, "initiated", "")
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClaimsFromContext returns the validated claims for the request, or
// nil for unauthenticated requests.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
