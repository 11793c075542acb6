package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidItem is returned when an item fails validation before admission.
var ErrInvalidItem = errors.New("invalid queue item")

// Admit inserts item unless the dedup policy finds it already pending or
// processed. It reports whether the item was newly admitted. The check and the
// insert run as one statement, so concurrent callers cannot both succeed for
// the same identity. Manual items skip the history check but never the pending
// check.
func (s *Store) Admit(ctx context.Context, item *Item) (bool, error) {
	if item == nil {
		return false, fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}
	if err := item.Media.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	item.FilePath = strings.TrimSpace(item.FilePath)
	if item.FilePath == "" {
		return false, fmt.Errorf("%w: file path is required", ErrInvalidItem)
	}

	now := s.now().UTC()
	item.CreatedAt = now

	query, args := s.admitStatement(item, now.UnixNano())
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("admit %s %d: %w", item.Kind, item.ItemID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("admit rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		item.ID = id
	}
	return true, nil
}

func (s *Store) admitStatement(item *Item, createdAt int64) (string, []any) {
	var b strings.Builder
	b.WriteString(`INSERT INTO queue_items (item_type, item_id, series_id, file_path, title, detail, manual, dry_run, created_at)
        SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
        WHERE 1 = 1`)
	args := []any{
		string(item.Kind),
		item.ItemID,
		nullableInt64(item.SeriesID),
		item.FilePath,
		nullableString(item.Title),
		nullableString(item.Detail),
		boolToInt(item.Manual),
		boolToInt(item.DryRun),
		createdAt,
	}

	switch s.policy.Mode {
	case DedupPath:
		b.WriteString(" AND NOT EXISTS (SELECT 1 FROM queue_items WHERE file_path = ?)")
		args = append(args, item.FilePath)
		if !item.Manual {
			b.WriteString(" AND NOT EXISTS (SELECT 1 FROM history WHERE file_path = ?)")
			args = append(args, item.FilePath)
		}
	case DedupWindow:
		if !item.Manual {
			b.WriteString(" AND NOT EXISTS (SELECT 1 FROM history WHERE item_type = ? AND item_id = ? AND processed_at >= ?)")
			args = append(args, string(item.Kind), item.ItemID, createdAt-s.policy.Window.Nanoseconds())
		}
	default:
		if !item.Manual {
			b.WriteString(" AND NOT EXISTS (SELECT 1 FROM history WHERE item_type = ? AND item_id = ?)")
			args = append(args, string(item.Kind), item.ItemID)
		}
	}
	b.WriteString(" ON CONFLICT (item_type, item_id) DO NOTHING")
	return b.String(), args
}

// Pending returns queued items in drain order: oldest admission first.
func (s *Store) Pending(ctx context.Context) ([]*Item, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM queue_items ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountPending returns the number of queued items.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM queue_items").Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return count, nil
}

// Get returns the pending item for media, or nil when none is queued.
func (s *Store) Get(ctx context.Context, media Media) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM queue_items WHERE item_type = ? AND item_id = ?",
		string(media.Kind), media.ItemID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return item, nil
}

// Remove deletes the pending item for media. Removing an absent item is not an error.
func (s *Store) Remove(ctx context.Context, media Media) error {
	if _, err := s.execWithRetry(ctx,
		"DELETE FROM queue_items WHERE item_type = ? AND item_id = ?",
		string(media.Kind), media.ItemID); err != nil {
		return fmt.Errorf("remove queue item: %w", err)
	}
	return nil
}

// ResetQueue deletes all pending items and returns how many were removed.
func (s *Store) ResetQueue(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM queue_items")
	if err != nil {
		return 0, fmt.Errorf("reset queue: %w", err)
	}
	return res.RowsAffected()
}
