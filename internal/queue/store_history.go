package queue

import (
	"context"
	"database/sql"
	"fmt"
)

const insertHistorySQL = `INSERT INTO history (item_type, item_id, series_id, file_path, title, detail, success, swears_found, error_message, output_path, dry_run, processed_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertHistory(ctx context.Context, db execer, rec *HistoryRecord) error {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = s.now().UTC()
	}
	if rec.DryRun {
		rec.OutputPath = ""
	}
	res, err := db.ExecContext(ctx, insertHistorySQL,
		string(rec.Kind),
		rec.ItemID,
		nullableInt64(rec.SeriesID),
		rec.FilePath,
		nullableString(rec.Title),
		nullableString(rec.Detail),
		boolToInt(rec.Success),
		rec.SwearsFound,
		nullableString(rec.Error),
		nullableString(rec.OutputPath),
		boolToInt(rec.DryRun),
		rec.ProcessedAt.UTC().UnixNano(),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// AppendHistory records an outcome without touching the queue.
func (s *Store) AppendHistory(ctx context.Context, rec *HistoryRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: history record is nil", ErrInvalidItem)
	}
	if err := rec.Media.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	ctx = ensureContext(ctx)
	if err := retryOnBusy(ctx, func() error {
		return s.insertHistory(ctx, s.db, rec)
	}); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Complete appends rec to history and removes the matching queue item in one
// transaction.
func (s *Store) Complete(ctx context.Context, rec *HistoryRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: history record is nil", ErrInvalidItem)
	}
	if err := rec.Media.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := s.insertHistory(ctx, tx, rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM queue_items WHERE item_type = ? AND item_id = ?",
			string(rec.Kind), rec.ItemID); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("complete %s %d: %w", rec.Kind, rec.ItemID, err)
	}
	return nil
}

// QueryHistory returns a page of history ordered by processing time, newest first.
func (s *Store) QueryHistory(ctx context.Context, q HistoryQuery) ([]*HistoryRecord, error) {
	ctx = ensureContext(ctx)
	q = q.normalized()

	query := "SELECT " + historyColumns + " FROM history"
	args := make([]any, 0, 3)
	if q.Kind != "" {
		query += " WHERE item_type = ?"
		args = append(args, string(q.Kind))
	}
	query += " ORDER BY processed_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := make([]*HistoryRecord, 0, q.Limit)
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountHistory returns the number of history rows, optionally restricted to kind.
func (s *Store) CountHistory(ctx context.Context, kind Kind) (int, error) {
	ctx = ensureContext(ctx)
	query := "SELECT COUNT(1) FROM history"
	var args []any
	if kind != "" {
		query += " WHERE item_type = ?"
		args = append(args, string(kind))
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// ResetHistory truncates the history table and returns how many rows were removed.
func (s *Store) ResetHistory(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM history")
	if err != nil {
		return 0, fmt.Errorf("reset history: %w", err)
	}
	return res.RowsAffected()
}
