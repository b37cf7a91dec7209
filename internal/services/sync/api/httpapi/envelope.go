package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/driftline/syncd/internal/platform/httpx"
	"github.com/driftline/syncd/internal/platform/pagination"
	"github.com/driftline/syncd/internal/services/sync/domain/record"
	"github.com/driftline/syncd/internal/services/sync/storage"
)

type envelopePayload struct {
	ID        string `json:"id"`
	StreamID  string `json:"stream_id"`
	Host      string `json:"host"`
	Parent    string `json:"parent,omitempty"`
	Tag       string `json:"tag"`
	Version   string `json:"version"`
	Timestamp uint64 `json:"timestamp"`
	Data      string `json:"data"`
	CEK       string `json:"cek"`
}

type chainResponse struct {
	Envelopes []envelopePayload `json:"envelopes"`
}

func envelopeFromPayload(tenant string, payload envelopePayload) record.Envelope {
	return record.Envelope{
		Tenant:    tenant,
		ID:        payload.ID,
		StreamID:  payload.StreamID,
		Host:      payload.Host,
		Parent:    payload.Parent,
		Tag:       payload.Tag,
		Version:   payload.Version,
		Timestamp: payload.Timestamp,
		Data:      payload.Data,
		CEK:       payload.CEK,
	}
}

func payloadFromEnvelope(env record.Envelope) envelopePayload {
	return envelopePayload{
		ID:        env.ID,
		StreamID:  env.StreamID,
		Host:      env.Host,
		Parent:    env.Parent,
		Tag:       env.Tag,
		Version:   env.Version,
		Timestamp: env.Timestamp,
		Data:      env.Data,
		CEK:       env.CEK,
	}
}

func (s *Service) handlePutEnvelope(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var payload envelopePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	env := envelopeFromPayload(tenant, payload)
	if err := env.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch err := s.envelopes.Put(r.Context(), env); {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, struct{}{})
	case errors.Is(err, storage.ErrIdentityConflict):
		httpx.WriteError(w, http.StatusConflict, "envelope id already stored with different content")
	case errors.Is(err, storage.ErrOrphanParent):
		httpx.WriteError(w, http.StatusBadRequest, "envelope parent not found")
	default:
		httpx.WriteError(w, http.StatusServiceUnavailable, "put envelope failed")
	}
}

func (s *Service) handleGetEnvelope(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	env, err := s.envelopes.Get(r.Context(), tenant, r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "envelope not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "get envelope failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFromEnvelope(env))
}

func (s *Service) handleChain(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	limit = pagination.ClampPageSize(limit, rangePageSize)

	chain, err := s.envelopes.ChainFrom(r.Context(), tenant, r.PathValue("id"), limit)
	if errors.Is(err, storage.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "envelope not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "chain failed")
		return
	}

	resp := chainResponse{Envelopes: make([]envelopePayload, 0, len(chain))}
	for _, env := range chain {
		resp.Envelopes = append(resp.Envelopes, payloadFromEnvelope(env))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
