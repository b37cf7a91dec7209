// Package record defines the value types synchronized between devices.
//
// Record payloads are ciphertext end to end: the server stores and orders
// them but never interprets data or cek.
package record

import (
	"fmt"
	"strings"
)

// Record is one entry in a per-device stream. The client assigns Position as
// one past its last accepted position for the (tenant, host, tag) stream; the
// server never invents positions.
type Record struct {
	Tenant    string
	Host      string
	Tag       string
	Position  uint64
	Timestamp uint64
	Version   string
	Data      string
	CEK       string
}

// Stream identifies one (host, tag) stream and its highest occupied position.
type Stream struct {
	Host string
	Tag  string
	Head uint64
}

// Validate checks the fields a record must carry before it can be appended.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Tenant) == "" {
		return fmt.Errorf("tenant is required")
	}
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if strings.TrimSpace(r.Tag) == "" {
		return fmt.Errorf("tag is required")
	}
	if r.Position == 0 {
		return fmt.Errorf("position must be greater than zero")
	}
	if strings.TrimSpace(r.Version) == "" {
		return fmt.Errorf("version is required")
	}
	if r.Data == "" {
		return fmt.Errorf("data is required")
	}
	if strings.TrimSpace(r.CEK) == "" {
		return fmt.Errorf("cek is required")
	}
	return nil
}
