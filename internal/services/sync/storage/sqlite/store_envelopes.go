package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/driftline/syncd/internal/services/sync/domain/record"
	"github.com/driftline/syncd/internal/services/sync/storage"
)

// Put stores one envelope. Re-submitting an already-stored envelope with
// identical content is a no-op success; the same id with different content is
// an identity conflict; a non-empty parent unknown to the chain is rejected.
func (s *Store) Put(ctx context.Context, env record.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := env.Validate(); err != nil {
		return err
	}
	contentHash := env.ContentHash()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var storedHash string
	err = tx.QueryRowContext(ctx,
		"SELECT content_hash FROM envelopes WHERE user_id = ? AND id = ?",
		env.Tenant, env.ID,
	).Scan(&storedHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load envelope: %w", err)
	}
	if err == nil {
		if storedHash == contentHash {
			return nil
		}
		return storage.ErrIdentityConflict
	}

	if env.Parent != "" {
		var found int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM envelopes
			  WHERE user_id = ? AND id = ? AND stream_id = ? AND host = ?`,
			env.Tenant, env.Parent, env.StreamID, env.Host,
		).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrOrphanParent
		}
		if err != nil {
			return fmt.Errorf("load envelope parent: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO envelopes (user_id, id, stream_id, host, parent, tag, version, timestamp, data, cek, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		env.Tenant,
		env.ID,
		env.StreamID,
		env.Host,
		env.Parent,
		env.Tag,
		env.Version,
		int64(env.Timestamp),
		env.Data,
		env.CEK,
		contentHash,
		toMillis(time.Now()),
	); err != nil {
		if isConstraintError(err) {
			// A concurrent put won the insert; idempotency depends on whether
			// it stored the same content.
			var winnerHash string
			lookupErr := tx.QueryRowContext(ctx,
				"SELECT content_hash FROM envelopes WHERE user_id = ? AND id = ?",
				env.Tenant, env.ID,
			).Scan(&winnerHash)
			if lookupErr == nil && winnerHash == contentHash {
				return nil
			}
			return storage.ErrIdentityConflict
		}
		return fmt.Errorf("put envelope: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns one envelope by client id.
func (s *Store) Get(ctx context.Context, tenant, id string) (record.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return record.Envelope{}, err
	}
	if s == nil || s.sqlDB == nil {
		return record.Envelope{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tenant) == "" {
		return record.Envelope{}, fmt.Errorf("tenant is required")
	}
	if strings.TrimSpace(id) == "" {
		return record.Envelope{}, fmt.Errorf("id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, stream_id, host, parent, tag, version, timestamp, data, cek
		   FROM envelopes
		  WHERE user_id = ? AND id = ?`,
		tenant, id,
	)
	return scanEnvelope(row, tenant)
}

// ChainFrom walks parent links forward from id, returning envelopes in
// parent-to-child order, bounded by limit. When a chain forks, the oldest
// stored child wins; later forks are reachable by walking from their own ids.
func (s *Store) ChainFrom(ctx context.Context, tenant, id string, limit int) ([]record.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	head, err := s.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	chain := []record.Envelope{head}
	current := head.ID
	for len(chain) < limit {
		row := s.sqlDB.QueryRowContext(ctx,
			`SELECT id, stream_id, host, parent, tag, version, timestamp, data, cek
			   FROM envelopes
			  WHERE user_id = ? AND parent = ?
			  ORDER BY created_at ASC, id ASC
			  LIMIT 1`,
			tenant, current,
		)
		child, err := scanEnvelope(row, tenant)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, child)
		current = child.ID
	}
	return chain, nil
}

func scanEnvelope(row *sql.Row, tenant string) (record.Envelope, error) {
	env := record.Envelope{Tenant: tenant}
	var timestamp int64
	err := row.Scan(
		&env.ID,
		&env.StreamID,
		&env.Host,
		&env.Parent,
		&env.Tag,
		&env.Version,
		&timestamp,
		&env.Data,
		&env.CEK,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Envelope{}, storage.ErrNotFound
	}
	if err != nil {
		return record.Envelope{}, fmt.Errorf("scan envelope: %w", err)
	}
	env.Timestamp = uint64(timestamp)
	return env, nil
}

var _ storage.EnvelopeStore = (*Store)(nil)
