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

type appendRequest struct {
	Position  uint64 `json:"position"`
	Timestamp uint64 `json:"timestamp"`
	Version   string `json:"version"`
	Data      string `json:"data"`
	CEK       string `json:"cek"`
}

type appendResponse struct {
	Position uint64 `json:"position"`
}

type recordPayload struct {
	Host      string `json:"host"`
	Tag       string `json:"tag"`
	Position  uint64 `json:"position"`
	Timestamp uint64 `json:"timestamp"`
	Version   string `json:"version"`
	Data      string `json:"data"`
	CEK       string `json:"cek"`
}

type rangeResponse struct {
	Records []recordPayload `json:"records"`
}

type streamPayload struct {
	Host string `json:"host"`
	Tag  string `json:"tag"`
	Head uint64 `json:"head"`
}

type statusResponse struct {
	Streams []streamPayload `json:"streams"`
}

func (s *Service) handleAppend(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var req appendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec := record.Record{
		Tenant:    tenant,
		Host:      r.PathValue("host"),
		Tag:       r.PathValue("tag"),
		Position:  req.Position,
		Timestamp: req.Timestamp,
		Version:   req.Version,
		Data:      req.Data,
		CEK:       req.CEK,
	}
	if err := rec.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch err := s.records.Append(r.Context(), rec); {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, appendResponse{Position: rec.Position})
	case errors.Is(err, storage.ErrPositionConflict):
		httpx.WriteError(w, http.StatusConflict, "position conflict")
	case errors.Is(err, storage.ErrTenantMismatch):
		httpx.WriteError(w, http.StatusForbidden, "stream belongs to another tenant")
	default:
		httpx.WriteError(w, http.StatusServiceUnavailable, "append failed")
	}
}

func (s *Service) handleRange(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	var after uint64
	if raw := query.Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = parsed
	}
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	limit = pagination.ClampPageSize(limit, rangePageSize)

	records, err := s.records.Range(r.Context(), tenant, r.PathValue("host"), r.PathValue("tag"), after, limit)
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "range failed")
		return
	}

	resp := rangeResponse{Records: make([]recordPayload, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, recordPayload{
			Host:      rec.Host,
			Tag:       rec.Tag,
			Position:  rec.Position,
			Timestamp: rec.Timestamp,
			Version:   rec.Version,
			Data:      rec.Data,
			CEK:       rec.CEK,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	streams, err := s.records.ListStreams(r.Context(), tenant)
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "status failed")
		return
	}

	resp := statusResponse{Streams: make([]streamPayload, 0, len(streams))}
	for _, stream := range streams {
		resp.Streams = append(resp.Streams, streamPayload{
			Host: stream.Host,
			Tag:  stream.Tag,
			Head: stream.Head,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
