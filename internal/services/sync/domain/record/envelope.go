package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Envelope is a content-chained record keyed by a client-generated identifier.
// Parent links form a chain per (stream identity, host) that clients use to
// verify they are extending the history they think they are extending,
// independent of server-assigned positions.
type Envelope struct {
	Tenant    string
	ID        string
	StreamID  string
	Host      string
	Parent    string
	Tag       string
	Version   string
	Timestamp uint64
	Data      string
	CEK       string
}

// Validate checks the fields an envelope must carry before it can be stored.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.Tenant) == "" {
		return fmt.Errorf("tenant is required")
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(e.StreamID) == "" {
		return fmt.Errorf("stream id is required")
	}
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if strings.TrimSpace(e.Tag) == "" {
		return fmt.Errorf("tag is required")
	}
	if strings.TrimSpace(e.Version) == "" {
		return fmt.Errorf("version is required")
	}
	if e.Data == "" {
		return fmt.Errorf("data is required")
	}
	if strings.TrimSpace(e.CEK) == "" {
		return fmt.Errorf("cek is required")
	}
	return nil
}

// ContentHash returns a stable digest of every client-supplied field. Two puts
// of the same id are idempotent exactly when their content hashes match.
func (e Envelope) ContentHash() string {
	h := sha256.New()
	for _, field := range []string{
		e.ID,
		e.StreamID,
		e.Host,
		e.Parent,
		e.Tag,
		e.Version,
		fmt.Sprintf("%d", e.Timestamp),
		e.Data,
		e.CEK,
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
