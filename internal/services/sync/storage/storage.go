// Package storage defines persistence contracts for sync service state.
package storage

import (
	"context"
	"errors"

	"github.com/driftline/syncd/internal/services/sync/domain/record"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrPositionConflict indicates a record already occupies the claimed
	// stream position. The client must re-read the head position and retry.
	ErrPositionConflict = errors.New("stream position already claimed")
	// ErrTenantMismatch indicates a (host, tag) stream is owned by a
	// different tenant.
	ErrTenantMismatch = errors.New("stream belongs to another tenant")
	// ErrOrphanParent indicates an envelope references a parent unknown to
	// its chain.
	ErrOrphanParent = errors.New("envelope parent not found")
	// ErrIdentityConflict indicates an envelope id was re-submitted with
	// different content.
	ErrIdentityConflict = errors.New("envelope id already stored with different content")
)

// RecordStore persists the append-only record log and its stream head cache.
type RecordStore interface {
	// Append durably stores one record at its client-claimed position and
	// advances the stream head cache in the same transaction.
	Append(ctx context.Context, rec record.Record) error

	// Range returns records with position strictly greater than after,
	// ascending, bounded by limit. Callers resume by passing the last
	// position received.
	Range(ctx context.Context, tenant, host, tag string, after uint64, limit int) ([]record.Record, error)

	// HeadPosition returns the highest occupied position for a stream, or 0
	// when the stream is empty.
	HeadPosition(ctx context.Context, tenant, host, tag string) (uint64, error)

	// ListStreams enumerates the known (host, tag) streams for a tenant with
	// their head positions.
	ListStreams(ctx context.Context, tenant string) ([]record.Stream, error)

	// RebuildStreamHeads discards the head cache and recomputes it from the
	// record log alone. This is the disaster-recovery procedure; after it
	// runs, HeadPosition must agree with a full log scan for every stream.
	RebuildStreamHeads(ctx context.Context) error
}

// EnvelopeStore persists content-chained envelopes keyed by client ids.
type EnvelopeStore interface {
	// Put stores one envelope. Re-submitting an already-stored envelope with
	// identical content is a no-op; the same id with different content is
	// ErrIdentityConflict; an unknown non-empty parent is ErrOrphanParent.
	Put(ctx context.Context, env record.Envelope) error

	// Get returns one envelope by client id.
	Get(ctx context.Context, tenant, id string) (record.Envelope, error)

	// ChainFrom walks parent links forward from id, returning envelopes in
	// parent-to-child order, bounded by limit. Children are located via the
	// parent index; the walk ends when no child references the current id.
	ChainFrom(ctx context.Context, tenant, id string, limit int) ([]record.Envelope, error)
}

// HistoryStore persists the plaintext-free history log and its counters.
type HistoryStore interface {
	// Add inserts entries, ignoring client ids already stored, and maintains
	// both per-tenant counters in the insert transaction.
	Add(ctx context.Context, entries []record.HistoryEntry) (int64, error)

	// Delete soft-deletes one entry by client id. The live counter decrements
	// on the first delete only; the lifetime counter never decrements.
	Delete(ctx context.Context, tenant, clientID string) error

	// Counts returns the cached per-tenant aggregates.
	Counts(ctx context.Context, tenant string) (record.HistoryCounts, error)

	// Deleted lists client ids of soft-deleted entries so devices can retract
	// them locally.
	Deleted(ctx context.Context, tenant string) ([]string, error)
}
