package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/driftline/syncd/internal/platform/httpx"
)

// Verifier maps a bearer token to the tenant it authenticates.
type Verifier interface {
	Verify(token string) (string, error)
}

type contextKey struct{}

var tenantKey contextKey

// TenantFromContext returns the authenticated tenant id, if any.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenant, ok := ctx.Value(tenantKey).(string)
	return tenant, ok && tenant != ""
}

// WithTenant returns a context carrying the authenticated tenant id.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

// Middleware authenticates requests with a bearer token and stores the tenant
// on the request context. Requests without a valid token get 401.
func Middleware(verifier Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				httpx.WriteError(w, http.StatusServiceUnavailable, "authentication is not configured")
				return
			}
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			tenant, err := verifier.Verify(token)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenant)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
