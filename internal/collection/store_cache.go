package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"photobooth/internal/mediaitem"
)

// InsertCached persists a freshly generated derivation row.
func (s *Store) InsertCached(ctx context.Context, cached *mediaitem.CachedItem) error {
	if cached == nil {
		return errors.New("nil cached item")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO cached_items (id, media_item_id, dimension, processed, path, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		cached.ID,
		cached.MediaItemID,
		string(cached.Dimension),
		boolToInt(cached.Processed),
		cached.Path,
		cached.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert cached item: %w", err)
	}
	return nil
}

// CachedByTriple fetches the row for the cache identity key, valid or not.
// Returns (nil, nil) when no row exists.
func (s *Store) CachedByTriple(ctx context.Context, mediaItemID string, dimension mediaitem.Dimension, processed bool) (*mediaitem.CachedItem, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+cachedColumns+` FROM cached_items
         WHERE media_item_id = ? AND dimension = ? AND processed = ?`,
		mediaItemID,
		string(dimension),
		boolToInt(processed),
	)
	cached, err := scanCachedItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached item: %w", err)
	}
	return cached, nil
}

// CachedByMediaItem returns every derivation row for the given source item.
func (s *Store) CachedByMediaItem(ctx context.Context, mediaItemID string) ([]*mediaitem.CachedItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+cachedColumns+` FROM cached_items WHERE media_item_id = ?`,
		mediaItemID,
	)
	if err != nil {
		return nil, fmt.Errorf("cached by media item: %w", err)
	}
	defer rows.Close()
	return collectCachedItems(rows)
}

// StaleCached returns derivation rows whose source changed after they were
// generated. Timestamp comparison happens here rather than in SQL because
// RFC3339Nano strings do not compare lexicographically across precisions.
func (s *Store) StaleCached(ctx context.Context) ([]*mediaitem.CachedItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT c.id, c.media_item_id, c.dimension, c.processed, c.path, c.created_at, m.updated_at
         FROM cached_items c JOIN media_items m ON m.id = c.media_item_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("scan stale cached items: %w", err)
	}
	defer rows.Close()

	var stale []*mediaitem.CachedItem
	for rows.Next() {
		var (
			id          string
			mediaItemID string
			dimension   string
			processed   sql.NullInt64
			path        string
			createdRaw  sql.NullString
			updatedRaw  sql.NullString
		)
		if err := rows.Scan(&id, &mediaItemID, &dimension, &processed, &path, &createdRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan stale cached row: %w", err)
		}
		created, err := parseTimeString(createdRaw.String)
		if err != nil {
			continue
		}
		updated, err := parseTimeString(updatedRaw.String)
		if err != nil {
			continue
		}
		if updated.Before(created) {
			continue
		}
		stale = append(stale, &mediaitem.CachedItem{
			ID:          id,
			MediaItemID: mediaItemID,
			Dimension:   mediaitem.Dimension(dimension),
			Processed:   processed.Int64 != 0,
			Path:        path,
			CreatedAt:   created,
		})
	}
	return stale, rows.Err()
}

// DeleteCached removes one derivation row.
func (s *Store) DeleteCached(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cached_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete cached item: %w", err)
	}
	return nil
}

// ClearCached removes every derivation row.
func (s *Store) ClearCached(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cached_items`)
	if err != nil {
		return 0, fmt.Errorf("clear cached items: %w", err)
	}
	return res.RowsAffected()
}

func collectCachedItems(rows *sql.Rows) ([]*mediaitem.CachedItem, error) {
	var items []*mediaitem.CachedItem
	for rows.Next() {
		item, err := scanCachedItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cached item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const cachedColumns = "id, media_item_id, dimension, processed, path, created_at"

func scanCachedItem(scanner interface{ Scan(dest ...any) error }) (*mediaitem.CachedItem, error) {
	var (
		id          string
		mediaItemID string
		dimension   string
		processed   sql.NullInt64
		path        string
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &mediaItemID, &dimension, &processed, &path, &createdRaw); err != nil {
		return nil, err
	}
	cached := &mediaitem.CachedItem{
		ID:          id,
		MediaItemID: mediaItemID,
		Dimension:   mediaitem.Dimension(dimension),
		Processed:   processed.Int64 != 0,
		Path:        path,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		cached.CreatedAt = created
	}
	return cached, nil
}
