package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security/audit"
	"github.com/yourorg/centerattend/internal/security/ratelimit"
)

type AccountContextKey struct{}

// Verifier checks a bearer token and resolves the account behind it. The
// auth service implements this; the indirection keeps the middleware free of
// service imports.
type Verifier interface {
	Verify(token string) (*domain.Account, error)
}

// publicPath reports whether a path is served without a session token.
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics",
		"/api/auth/login",
		"/api/auth/register/instructor",
		"/api/auth/register/student",
		"/api/centers/public":
		return true
	}
	// Websocket upgrades authenticate with a token query parameter inside
	// the feed handler; browsers cannot attach Authorization headers there.
	return strings.HasPrefix(path, "/ws/")
}

func JWTMiddleware(verifier Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			account, err := verifier.Verify(parts[1])
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AccountContextKey{}, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := ""
			if account := GetAccountFromContext(r.Context()); account != nil {
				key = account.ID
			} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			}

			if !limiter.Allow(key) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			// Credential guessing gets a much tighter budget.
			if r.URL.Path == "/api/auth/login" && !limiter.AllowStrict("login:"+key, 10, time.Minute) {
				log.Warn("login rate limit exceeded", slog.String("key", key))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := ""
			role := ""
			if account := GetAccountFromContext(r.Context()); account != nil {
				accountID = account.ID
				role = string(account.Role)
			}

			if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/attendance") {
				auditLog.LogMark(r.Context(), accountID, role, "", "initiated", r.URL.Path)
			}
			if r.Method == http.MethodDelete {
				auditLog.LogAction(r.Context(), accountID, role, "delete", "record", r.PathValue("id"), "initiated", r.URL.Path)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ValidateJSONContentType ensures mutating requests carry a JSON body.
func ValidateJSONContentType(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				log.Warn("invalid content type",
					slog.String("path", r.URL.Path),
					slog.String("content_type", contentType),
					slog.String("method", r.Method),
				)
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetAccountFromContext(ctx context.Context) *domain.Account {
	if a := ctx.Value(AccountContextKey{}); a != nil {
		return a.(*domain.Account)
	}
	return nil
}
