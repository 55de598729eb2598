package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"photobooth/internal/config"
	"photobooth/internal/mediaitem"
)

// Store manages media item persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the media database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Insert persists a new media item and assigns its sequence number.
func (s *Store) Insert(ctx context.Context, item *mediaitem.MediaItem) error {
	if item == nil {
		return errors.New("nil media item")
	}
	if item.ID == "" {
		return errors.New("media item id required")
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("invalid media kind %q", item.Kind)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO media_items (
            id, kind, created_at, updated_at, job_id,
            unprocessed, processed, captured_original, pipeline_config, show_in_gallery
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		string(item.Kind),
		item.CreatedAt.UTC().Format(time.RFC3339Nano),
		item.UpdatedAt.UTC().Format(time.RFC3339Nano),
		nullableString(item.JobID),
		item.Unprocessed,
		item.Processed,
		nullableString(item.CapturedOriginal),
		nullableString(item.PipelineConfig),
		boolToInt(item.ShowInGallery),
	)
	if err != nil {
		return fmt.Errorf("insert media item: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	item.Seq = seq
	return nil
}

// Update rewrites the mutable columns of an existing item. The id and
// sequence number never change.
func (s *Store) Update(ctx context.Context, item *mediaitem.MediaItem) error {
	if item == nil {
		return errors.New("nil media item")
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE media_items SET
            updated_at = ?, job_id = ?, unprocessed = ?, processed = ?,
            captured_original = ?, pipeline_config = ?, show_in_gallery = ?
        WHERE id = ?`,
		item.UpdatedAt.UTC().Format(time.RFC3339Nano),
		nullableString(item.JobID),
		item.Unprocessed,
		item.Processed,
		nullableString(item.CapturedOriginal),
		nullableString(item.PipelineConfig),
		boolToInt(item.ShowInGallery),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update media item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("media item %s not found", item.ID)
	}
	return nil
}

// Get fetches a media item by identifier. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*mediaitem.MediaItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM media_items WHERE id = ?`, id)
	item, err := scanMediaItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media item: %w", err)
	}
	return item, nil
}

// Latest returns the most recently inserted item by sequence number. The
// sequence is used instead of created_at because timestamp resolution is too
// coarse for burst captures. Returns (nil, nil) on an empty collection.
func (s *Store) Latest(ctx context.Context) (*mediaitem.MediaItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM media_items ORDER BY seq DESC LIMIT 1`)
	item, err := scanMediaItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest media item: %w", err)
	}
	return item, nil
}

// List returns items ordered by descending insertion order. A limit <= 0
// returns everything from offset onward.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*mediaitem.MediaItem, error) {
	query := `SELECT ` + itemColumns + ` FROM media_items ORDER BY seq DESC`
	args := make([]any, 0, 2)
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ItemsByJob returns every item carrying the given job identifier, oldest
// first (phase-1 capture order).
func (s *Store) ItemsByJob(ctx context.Context, jobID string) ([]*mediaitem.MediaItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM media_items WHERE job_id = ? ORDER BY seq ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("items by job: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// Count returns the number of persisted media items.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_items`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count media items: %w", err)
	}
	return count, nil
}

// Delete removes an item by identifier. Cached rows referencing it are
// removed by the foreign key cascade.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM media_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete media item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearAll removes every media item (and, via cascade, every cached row).
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM media_items`)
	if err != nil {
		return 0, fmt.Errorf("clear media items: %w", err)
	}
	return res.RowsAffected()
}

func collectItems(rows *sql.Rows) ([]*mediaitem.MediaItem, error) {
	var items []*mediaitem.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const itemColumns = "seq, id, kind, created_at, updated_at, job_id, unprocessed, processed, captured_original, pipeline_config, show_in_gallery"

func scanMediaItem(scanner interface{ Scan(dest ...any) error }) (*mediaitem.MediaItem, error) {
	var (
		seq              int64
		id               string
		kindStr          string
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		jobID            sql.NullString
		unprocessed      sql.NullString
		processed        sql.NullString
		capturedOriginal sql.NullString
		pipelineConfig   sql.NullString
		showInGallery    sql.NullInt64
	)

	if err := scanner.Scan(
		&seq,
		&id,
		&kindStr,
		&createdRaw,
		&updatedRaw,
		&jobID,
		&unprocessed,
		&processed,
		&capturedOriginal,
		&pipelineConfig,
		&showInGallery,
	); err != nil {
		return nil, err
	}

	item := &mediaitem.MediaItem{
		Seq:              seq,
		ID:               id,
		Kind:             mediaitem.MediaKind(kindStr),
		JobID:            jobID.String,
		Unprocessed:      unprocessed.String,
		Processed:        processed.String,
		CapturedOriginal: capturedOriginal.String,
		PipelineConfig:   pipelineConfig.String,
	}
	if showInGallery.Valid {
		item.ShowInGallery = showInGallery.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
