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

// Add inserts history entries, ignoring client ids already stored. Both
// per-tenant counters advance in the same transaction as the inserts so the
// cached aggregates can never drift from the rows that exist. Returns the
// number of entries actually inserted.
func (s *Store) Add(ctx context.Context, entries []record.HistoryEntry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if len(entries) == 0 {
		return 0, nil
	}
	for i, entry := range entries {
		if err := entry.Validate(); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	added := make(map[string]int64)
	var total int64
	for i, entry := range entries {
		result, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO history (client_id, user_id, hostname, timestamp, data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.ClientID,
			entry.Tenant,
			entry.Hostname,
			entry.Timestamp.UTC().UnixNano(),
			entry.Data,
			toMillis(time.Now()),
		)
		if err != nil {
			return 0, fmt.Errorf("add history entry %d: %w", i, err)
		}
		inserted, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("history rows affected: %w", err)
		}
		added[entry.Tenant] += inserted
		total += inserted
	}

	for tenant, count := range added {
		if count == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history_counts (user_id, live, lifetime)
			 VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   live = history_counts.live + excluded.live,
			   lifetime = history_counts.lifetime + excluded.lifetime`,
			tenant, count, count,
		); err != nil {
			return 0, fmt.Errorf("advance history counts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// Delete soft-deletes one history entry by client id. The live counter
// decrements only on the first delete; the lifetime counter is untouched.
func (s *Store) Delete(ctx context.Context, tenant, clientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tenant) == "" {
		return fmt.Errorf("tenant is required")
	}
	if strings.TrimSpace(clientID) == "" {
		return fmt.Errorf("client id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE history SET deleted_at = ?
		  WHERE user_id = ? AND client_id = ? AND deleted_at IS NULL`,
		toMillis(time.Now()), tenant, clientID,
	)
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("history rows affected: %w", err)
	}
	if deleted > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE history_counts SET live = live - ? WHERE user_id = ?",
			deleted, tenant,
		); err != nil {
			return fmt.Errorf("decrement live count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Counts returns the cached per-tenant aggregates. A tenant with no history
// yet reads as zero for both.
func (s *Store) Counts(ctx context.Context, tenant string) (record.HistoryCounts, error) {
	if err := ctx.Err(); err != nil {
		return record.HistoryCounts{}, err
	}
	if s == nil || s.sqlDB == nil {
		return record.HistoryCounts{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tenant) == "" {
		return record.HistoryCounts{}, fmt.Errorf("tenant is required")
	}

	var counts record.HistoryCounts
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT live, lifetime FROM history_counts WHERE user_id = ?",
		tenant,
	).Scan(&counts.Live, &counts.Lifetime)
	if errors.Is(err, sql.ErrNoRows) {
		return record.HistoryCounts{}, nil
	}
	if err != nil {
		return record.HistoryCounts{}, fmt.Errorf("history counts: %w", err)
	}
	return counts, nil
}

// Deleted lists client ids of soft-deleted entries.
func (s *Store) Deleted(ctx context.Context, tenant string) ([]string, error) {
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
		"SELECT client_id FROM history WHERE user_id = ? AND deleted_at IS NOT NULL ORDER BY client_id",
		tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("list deleted history: %w", err)
	}
	defer rows.Close()

	var clientIDs []string
	for rows.Next() {
		var clientID string
		if err := rows.Scan(&clientID); err != nil {
			return nil, fmt.Errorf("scan client id: %w", err)
		}
		clientIDs = append(clientIDs, clientID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted history: %w", err)
	}
	return clientIDs, nil
}

var _ storage.HistoryStore = (*Store)(nil)
