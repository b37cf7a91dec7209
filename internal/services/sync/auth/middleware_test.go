package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubVerifier struct {
	tenant string
	err    error
}

func (s stubVerifier) Verify(token string) (string, error) {
	return s.tenant, s.err
}

func TestMiddlewareStoresTenantOnContext(t *testing.T) {
	t.Parallel()

	var seen string
	handler := Middleware(stubVerifier{tenant: "tenant-1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = TenantFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if seen != "tenant-1" {
		t.Fatalf("tenant = %q, want tenant-1", seen)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	t.Parallel()

	handler := Middleware(stubVerifier{tenant: "tenant-1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	for _, header := range []string{"", "Bearer ", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, recorder.Code)
		}
	}
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	t.Parallel()

	handler := Middleware(stubVerifier{err: errors.New("bad token")})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
}

func TestTenantFromContextWithoutTenant(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if tenant, ok := TenantFromContext(req.Context()); ok || tenant != "" {
		t.Fatalf("tenant = %q ok = %v, want empty", tenant, ok)
	}
}
