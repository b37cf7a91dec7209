package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/driftline/syncd/internal/id"
	"github.com/driftline/syncd/internal/services/sync/domain/record"
	"github.com/driftline/syncd/internal/services/sync/storage"
)

// Append durably stores one record at its client-claimed position and
// advances the stream head cache in the same transaction. The unique
// (user_id, host, tag, position) index is the authority for conflict
// detection; the in-transaction head check only gives earlier, clearer
// rejections for stale clients.
func (s *Store) Append(ctx context.Context, rec record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner string
	var head int64
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, position FROM stream_heads WHERE host = ? AND tag = ?",
		rec.Host, rec.Tag,
	).Scan(&owner, &head)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load stream head: %w", err)
	}
	if err == nil {
		if owner != rec.Tenant {
			return storage.ErrTenantMismatch
		}
		if int64(rec.Position) <= head {
			return storage.ErrPositionConflict
		}
	}

	rowID, err := id.New()
	if err != nil {
		return fmt.Errorf("generate record id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (id, user_id, host, tag, position, timestamp, version, data, cek, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rowID,
		rec.Tenant,
		rec.Host,
		rec.Tag,
		int64(rec.Position),
		int64(rec.Timestamp),
		rec.Version,
		rec.Data,
		rec.CEK,
		toMillis(time.Now()),
	); err != nil {
		if isConstraintError(err) {
			return storage.ErrPositionConflict
		}
		return fmt.Errorf("append record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stream_heads (user_id, host, tag, position, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, host, tag) DO UPDATE SET
		   position = MAX(stream_heads.position, excluded.position),
		   updated_at = excluded.updated_at`,
		rec.Tenant,
		rec.Host,
		rec.Tag,
		int64(rec.Position),
		toMillis(time.Now()),
	); err != nil {
		if isStreamOwnerConflict(err) {
			return storage.ErrTenantMismatch
		}
		return fmt.Errorf("advance stream head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Range returns records with position strictly greater than after, ascending,
// bounded by limit.
func (s *Store) Range(ctx context.Context, tenant, host, tag string, after uint64, limit int) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tenant) == "" {
		return nil, fmt.Errorf("tenant is required")
	}
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("host is required")
	}
	if strings.TrimSpace(tag) == "" {
		return nil, fmt.Errorf("tag is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT host, tag, position, timestamp, version, data, cek
		   FROM records
		  WHERE user_id = ? AND host = ? AND tag = ? AND position > ?
		  ORDER BY position ASC
		  LIMIT ?`,
		tenant, host, tag, int64(after), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("range records: %w", err)
	}
	defer rows.Close()

	records := make([]record.Record, 0, limit)
	for rows.Next() {
		rec := record.Record{Tenant: tenant}
		var position int64
		var timestamp int64
		if err := rows.Scan(&rec.Host, &rec.Tag, &position, &timestamp, &rec.Version, &rec.Data, &rec.CEK); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Position = uint64(position)
		rec.Timestamp = uint64(timestamp)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// HeadPosition returns the highest occupied position for a stream, or 0 when
// the stream is empty. Reads come from the head cache, which Append maintains
// transactionally and RebuildStreamHeads can recompute from the log.
func (s *Store) HeadPosition(ctx context.Context, tenant, host, tag string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tenant) == "" {
		return 0, fmt.Errorf("tenant is required")
	}

	var position int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT position FROM stream_heads WHERE user_id = ? AND host = ? AND tag = ?",
		tenant, host, tag,
	).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("head position: %w", err)
	}
	return uint64(position), nil
}

// ListStreams enumerates the known (host, tag) streams for a tenant with
// their head positions, without scanning the record log.
func (s *Store) ListStreams(ctx context.Context, tenant string) ([]record.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tenant) == "" {
		return nil, fmt.Errorf("tenant is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT host, tag, position FROM stream_heads WHERE user_id = ? ORDER BY host, tag",
		tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var streams []record.Stream
	for rows.Next() {
		var stream record.Stream
		var position int64
		if err := rows.Scan(&stream.Host, &stream.Tag, &position); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		stream.Head = uint64(position)
		streams = append(streams, stream)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streams: %w", err)
	}
	return streams, nil
}

// RebuildStreamHeads discards the head cache and recomputes it from the
// record log alone.
func (s *Store) RebuildStreamHeads(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stream_heads"); err != nil {
		return fmt.Errorf("discard stream heads: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stream_heads (user_id, host, tag, position, updated_at)
		 SELECT user_id, host, tag, MAX(position), ?
		   FROM records
		  GROUP BY user_id, host, tag`,
		toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("recompute stream heads: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var _ storage.RecordStore = (*Store)(nil)
