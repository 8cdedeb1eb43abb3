// internal/store/changes.go
package store

import (
	"context"
	"fmt"
	"time"

	"congress-data-sync/internal/model"
)

// InsertChangeEntries appends change-log rows, silently skipping entries
// whose content hash is already present. Returns the number inserted.
func (s *Postgres) InsertChangeEntries(ctx context.Context, entries []model.ChangeLogEntry) (int, error) {
	inserted := 0
	for _, e := range entries {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO change_log (bill_id, change_type, previous_value, new_value, significance, content_hash, detected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (content_hash) DO NOTHING`,
			e.BillID, e.ChangeType, e.PreviousValue, e.NewValue, string(e.Significance), e.ContentHash, e.DetectedAt)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert change entry: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListUnnotifiedChanges returns change entries the notification collaborator
// has not consumed yet, oldest first.
func (s *Postgres) ListUnnotifiedChanges(ctx context.Context, limit int) ([]model.ChangeLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, bill_id, change_type, previous_value, new_value, significance, content_hash, detected_at, notified
		FROM change_log
		WHERE notified = false
		ORDER BY detected_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unnotified changes: %w", err)
	}
	defer rows.Close()

	var entries []model.ChangeLogEntry
	for rows.Next() {
		var (
			e            model.ChangeLogEntry
			significance string
			detectedAt   time.Time
		)
		if err := rows.Scan(&e.ID, &e.BillID, &e.ChangeType, &e.PreviousValue, &e.NewValue,
			&significance, &e.ContentHash, &detectedAt, &e.Notified); err != nil {
			return nil, fmt.Errorf("failed to scan change entry: %w", err)
		}
		e.Significance = model.Significance(significance)
		e.DetectedAt = detectedAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkChangesNotified flips the notified flag on consumed entries. The only
// permitted mutation of a change-log row.
func (s *Postgres) MarkChangesNotified(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `UPDATE change_log SET notified = true WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to mark changes notified: %w", err)
	}
	return nil
}
