// Package httpapi exposes the sync service over a JSON HTTP API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/driftline/syncd/internal/platform/httpx"
	"github.com/driftline/syncd/internal/platform/pagination"
	"github.com/driftline/syncd/internal/services/sync/auth"
	"github.com/driftline/syncd/internal/services/sync/storage"
)

var rangePageSize = pagination.PageSizeConfig{Default: 100, Max: 1000}

// Service routes sync API requests to the backing stores.
type Service struct {
	records   storage.RecordStore
	envelopes storage.EnvelopeStore
	history   storage.HistoryStore
	verifier  auth.Verifier
}

// NewService creates the API service over the given stores.
func NewService(records storage.RecordStore, envelopes storage.EnvelopeStore, history storage.HistoryStore, verifier auth.Verifier) *Service {
	return &Service{
		records:   records,
		envelopes: envelopes,
		history:   history,
		verifier:  verifier,
	}
}

// Handler builds the HTTP routing table. Everything under /v1/ requires a
// bearer token; /healthz does not.
func (s *Service) Handler() http.Handler {
	authed := auth.Middleware(s.verifier)

	mux := http.NewServeMux()
	mux.Handle("POST /v1/stream/{host}/{tag}", authed(http.HandlerFunc(s.handleAppend)))
	mux.Handle("GET /v1/stream/{host}/{tag}", authed(http.HandlerFunc(s.handleRange)))
	mux.Handle("GET /v1/status", authed(http.HandlerFunc(s.handleStatus)))
	mux.Handle("POST /v1/envelope", authed(http.HandlerFunc(s.handlePutEnvelope)))
	mux.Handle("GET /v1/envelope/{id}", authed(http.HandlerFunc(s.handleGetEnvelope)))
	mux.Handle("GET /v1/envelope/{id}/chain", authed(http.HandlerFunc(s.handleChain)))
	mux.Handle("POST /v1/history", authed(http.HandlerFunc(s.handleAddHistory)))
	mux.Handle("DELETE /v1/history/{clientID}", authed(http.HandlerFunc(s.handleDeleteHistory)))
	mux.Handle("GET /v1/history/counts", authed(http.HandlerFunc(s.handleHistoryCounts)))
	mux.Handle("GET /v1/history/deleted", authed(http.HandlerFunc(s.handleHistoryDeleted)))
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		tracing(),
	)
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// tenantFrom pulls the authenticated tenant or fails the request. The auth
// middleware guarantees it is present on every /v1/ route; a miss here means
// a wiring bug, not a client error.
func tenantFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing tenant")
		return "", false
	}
	return tenant, true
}
