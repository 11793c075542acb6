package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetFiltered opts a series (KindShow) or movie (KindMovie) in or out of censoring.
func (s *Store) SetFiltered(ctx context.Context, kind Kind, entityID int64, filtered bool) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: invalid media kind %q", ErrInvalidItem, kind)
	}
	if entityID <= 0 {
		return fmt.Errorf("%w: entity id must be positive", ErrInvalidItem)
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO filtered_flags (item_type, entity_id, filtered, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT (item_type, entity_id) DO UPDATE SET filtered = excluded.filtered, updated_at = excluded.updated_at`,
		string(kind), entityID, boolToInt(filtered), s.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("set filtered %s %d: %w", kind, entityID, err)
	}
	return nil
}

// IsFiltered reports whether the entity opted into censoring. Unknown entities
// are not filtered.
func (s *Store) IsFiltered(ctx context.Context, kind Kind, entityID int64) (bool, error) {
	ctx = ensureContext(ctx)
	var filtered int
	err := s.db.QueryRowContext(ctx,
		"SELECT filtered FROM filtered_flags WHERE item_type = ? AND entity_id = ?",
		string(kind), entityID).Scan(&filtered)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get filtered %s %d: %w", kind, entityID, err)
	}
	return filtered != 0, nil
}

// FilteredIDs returns the entity identifiers of kind that opted into censoring.
func (s *Store) FilteredIDs(ctx context.Context, kind Kind) ([]int64, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT entity_id FROM filtered_flags WHERE item_type = ? AND filtered = 1 ORDER BY entity_id",
		string(kind))
	if err != nil {
		return nil, fmt.Errorf("list filtered %s: %w", kind, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan filtered id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Flags returns every stored flag, filtered or not.
func (s *Store) Flags(ctx context.Context) ([]FilteredFlag, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_type, entity_id, filtered, updated_at FROM filtered_flags ORDER BY item_type, entity_id")
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	defer rows.Close()

	var flags []FilteredFlag
	for rows.Next() {
		var (
			kind     string
			flag     FilteredFlag
			filtered int
			updated  int64
		)
		if err := rows.Scan(&kind, &flag.EntityID, &filtered, &updated); err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		flag.Kind = Kind(kind)
		flag.Filtered = filtered != 0
		flag.UpdatedAt = fromUnixNano(updated)
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}
