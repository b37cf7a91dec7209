package record

import (
	"testing"
	"time"
)

func validRecord() Record {
	return Record{
		Tenant:    "tenant-1",
		Host:      "host-1",
		Tag:       "history",
		Position:  1,
		Timestamp: 1700000000,
		Version:   "v0",
		Data:      "ciphertext",
		CEK:       "wrapped-key",
	}
}

func TestRecordValidate(t *testing.T) {
	t.Parallel()

	if err := validRecord().Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing tenant", func(r *Record) { r.Tenant = " " }},
		{"missing host", func(r *Record) { r.Host = "" }},
		{"missing tag", func(r *Record) { r.Tag = "" }},
		{"zero position", func(r *Record) { r.Position = 0 }},
		{"missing version", func(r *Record) { r.Version = "" }},
		{"missing data", func(r *Record) { r.Data = "" }},
		{"missing cek", func(r *Record) { r.CEK = "" }},
	}
	for _, tc := range cases {
		rec := validRecord()
		tc.mutate(&rec)
		if err := rec.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func validEnvelope() Envelope {
	return Envelope{
		Tenant:    "tenant-1",
		ID:        "env-1",
		StreamID:  "stream-1",
		Host:      "host-1",
		Tag:       "history",
		Version:   "v0",
		Timestamp: 1700000000,
		Data:      "ciphertext",
		CEK:       "wrapped-key",
	}
}

func TestEnvelopeValidateAllowsEmptyParent(t *testing.T) {
	t.Parallel()

	env := validEnvelope()
	env.Parent = ""
	if err := env.Validate(); err != nil {
		t.Fatalf("chain root rejected: %v", err)
	}
}

func TestEnvelopeValidateRequiredFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{"missing tenant", func(e *Envelope) { e.Tenant = "" }},
		{"missing id", func(e *Envelope) { e.ID = "" }},
		{"missing stream id", func(e *Envelope) { e.StreamID = "" }},
		{"missing host", func(e *Envelope) { e.Host = "" }},
		{"missing tag", func(e *Envelope) { e.Tag = "" }},
		{"missing version", func(e *Envelope) { e.Version = "" }},
		{"missing data", func(e *Envelope) { e.Data = "" }},
		{"missing cek", func(e *Envelope) { e.CEK = "" }},
	}
	for _, tc := range cases {
		env := validEnvelope()
		tc.mutate(&env)
		if err := env.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestEnvelopeContentHashStability(t *testing.T) {
	t.Parallel()

	a := validEnvelope()
	b := validEnvelope()
	if a.ContentHash() != b.ContentHash() {
		t.Fatal("identical envelopes should share a content hash")
	}

	b.Data = "different-ciphertext"
	if a.ContentHash() == b.ContentHash() {
		t.Fatal("divergent content should change the hash")
	}
}

func TestEnvelopeContentHashFieldBoundaries(t *testing.T) {
	t.Parallel()

	// Concatenation must not let adjacent fields collide.
	a := validEnvelope()
	a.StreamID = "ab"
	a.Host = "c"
	b := validEnvelope()
	b.StreamID = "a"
	b.Host = "bc"
	if a.ContentHash() == b.ContentHash() {
		t.Fatal("field boundaries must be hashed")
	}
}

func TestHistoryEntryValidate(t *testing.T) {
	t.Parallel()

	entry := HistoryEntry{
		Tenant:    "tenant-1",
		ClientID:  "client-1",
		Hostname:  "laptop",
		Timestamp: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		Data:      "ciphertext",
	}
	if err := entry.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	entry.Timestamp = time.Time{}
	if err := entry.Validate(); err == nil {
		t.Fatal("expected zero timestamp rejection")
	}
}
