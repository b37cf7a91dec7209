package record

import (
	"fmt"
	"strings"
	"time"
)

// HistoryEntry is one entry in the per-tenant shell history log. Unlike
// stream records it has no position; ordering is by client timestamp and
// existence is tracked with a soft-delete marker.
type HistoryEntry struct {
	Tenant    string
	ClientID  string
	Hostname  string
	Timestamp time.Time
	Data      string
}

// HistoryCounts carries the two denormalized per-tenant aggregates: Live
// excludes soft-deleted entries, Lifetime never decrements.
type HistoryCounts struct {
	Live     int64
	Lifetime int64
}

// Validate checks the fields a history entry must carry before insert.
func (h HistoryEntry) Validate() error {
	if strings.TrimSpace(h.Tenant) == "" {
		return fmt.Errorf("tenant is required")
	}
	if strings.TrimSpace(h.ClientID) == "" {
		return fmt.Errorf("client id is required")
	}
	if strings.TrimSpace(h.Hostname) == "" {
		return fmt.Errorf("hostname is required")
	}
	if h.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if h.Data == "" {
		return fmt.Errorf("data is required")
	}
	return nil
}
