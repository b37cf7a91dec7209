package httpapi

import (
	"net/http"
	"time"

	"github.com/driftline/syncd/internal/platform/httpx"
	"github.com/driftline/syncd/internal/services/sync/domain/record"
)

type historyEntryPayload struct {
	ClientID  string    `json:"client_id"`
	Hostname  string    `json:"hostname"`
	Timestamp time.Time `json:"timestamp"`
	Data      string    `json:"data"`
}

type addHistoryRequest struct {
	Entries []historyEntryPayload `json:"entries"`
}

type addHistoryResponse struct {
	Added int64 `json:"added"`
}

type historyCountsResponse struct {
	Live     int64 `json:"live"`
	Lifetime int64 `json:"lifetime"`
}

type historyDeletedResponse struct {
	ClientIDs []string `json:"client_ids"`
}

func (s *Service) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var req addHistoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entries := make([]record.HistoryEntry, 0, len(req.Entries))
	for _, payload := range req.Entries {
		entry := record.HistoryEntry{
			Tenant:    tenant,
			ClientID:  payload.ClientID,
			Hostname:  payload.Hostname,
			Timestamp: payload.Timestamp,
			Data:      payload.Data,
		}
		if err := entry.Validate(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries = append(entries, entry)
	}

	added, err := s.history.Add(r.Context(), entries)
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "add history failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, addHistoryResponse{Added: added})
}

func (s *Service) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	if err := s.history.Delete(r.Context(), tenant, r.PathValue("clientID")); err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "delete history failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}

func (s *Service) handleHistoryCounts(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	counts, err := s.history.Counts(r.Context(), tenant)
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "history counts failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, historyCountsResponse{
		Live:     counts.Live,
		Lifetime: counts.Lifetime,
	})
}

func (s *Service) handleHistoryDeleted(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	clientIDs, err := s.history.Deleted(r.Context(), tenant)
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "history deleted failed")
		return
	}
	if clientIDs == nil {
		clientIDs = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, historyDeletedResponse{ClientIDs: clientIDs})
}
