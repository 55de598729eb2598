package collection

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/mediaitem"
	"photobooth/internal/resizer"
	"photobooth/internal/services"
)

// Cache memoizes scaled derivations of stored media items. A single mutex
// serializes lookup and generation; requests are human-paced, so one
// derivation at a time is acceptable and keeps the single-flight guarantee
// trivial.
type Cache struct {
	mu      sync.Mutex
	store   *Store
	resizer *resizer.Resizer
	dir     string
	lengths map[mediaitem.Dimension]int
	logger  *slog.Logger
}

// NewCache wires the derivation cache over the shared store.
func NewCache(cfg *config.Config, store *Store, rz *resizer.Resizer, logger *slog.Logger) *Cache {
	return &Cache{
		store:   store,
		resizer: rz,
		dir:     cfg.CacheDir(),
		lengths: map[mediaitem.Dimension]int{
			mediaitem.DimensionFull:      cfg.Mediaprocessing.FullStillLength,
			mediaitem.DimensionPreview:   cfg.Mediaprocessing.PreviewStillLength,
			mediaitem.DimensionThumbnail: cfg.Mediaprocessing.ThumbnailStillLength,
		},
		logger: logging.NewComponentLogger(logger, "cache"),
	}
}

// GetCachedItem returns a valid derivation for (item, dimension, processed),
// generating one when none exists. A row is valid only while the source's
// UpdatedAt is strictly older than the row's CreatedAt and the derived file
// still exists; an invalid row is dropped and regenerated in place.
func (c *Cache) GetCachedItem(ctx context.Context, item *mediaitem.MediaItem, dimension mediaitem.Dimension, processed bool) (*mediaitem.CachedItem, error) {
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "cache", "get", "nil media item", nil)
	}
	length, ok := c.lengths[dimension]
	if !ok || length <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "get", "no target length for dimension "+string(dimension), nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.store.CachedByTriple(ctx, item.ID, dimension, processed)
	if err != nil {
		return nil, services.Wrap(services.ErrPipeline, "cache", "lookup", "", err)
	}
	if existing != nil {
		if item.UpdatedAt.Before(existing.CreatedAt) && fileExists(existing.Path) {
			return existing, nil
		}
		c.dropRow(ctx, existing)
	}

	source := item.Unprocessed
	if processed {
		source = item.Processed
	}
	dest := filepath.Join(c.dir, mediaitem.CachedFilename(source))
	if err := c.resizer.ResizeFile(ctx, source, dest, length); err != nil {
		return nil, err
	}

	cached := mediaitem.NewCached(item.ID, dimension, processed, dest)
	if err := c.store.InsertCached(ctx, cached); err != nil {
		_ = os.Remove(dest)
		return nil, services.Wrap(services.ErrPipeline, "cache", "insert", "", err)
	}
	c.logger.Debug("derivation generated",
		logging.String(logging.FieldMediaItem, item.ID),
		logging.String("dimension", string(dimension)),
		logging.Bool("processed", processed))
	return cached, nil
}

// Maintain drops derivations whose source changed after generation,
// deleting both row and file. Per-file failures are logged and skipped.
func (c *Cache) Maintain(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale, err := c.store.StaleCached(ctx)
	if err != nil {
		return services.Wrap(services.ErrPipeline, "cache", "maintain", "", err)
	}
	for _, row := range stale {
		c.dropRow(ctx, row)
	}
	if len(stale) > 0 {
		c.logger.Info("stale derivations purged", logging.Int("count", len(stale)))
	}
	return nil
}

// Clear drops all derivation rows and empties the cache directory.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.ClearCached(ctx); err != nil {
		return services.Wrap(services.ErrPipeline, "cache", "clear", "", err)
	}
	if err := clearDirContents(c.dir); err != nil {
		return services.Wrap(services.ErrPipeline, "cache", "clear", "", err)
	}
	return nil
}

// DropForItem removes every derivation of one source item, rows and files.
// Used when the item itself is deleted.
func (c *Cache) DropForItem(ctx context.Context, mediaItemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.store.CachedByMediaItem(ctx, mediaItemID)
	if err != nil {
		return services.Wrap(services.ErrPipeline, "cache", "drop_for_item", "", err)
	}
	for _, row := range rows {
		c.dropRow(ctx, row)
	}
	return nil
}

func (c *Cache) dropRow(ctx context.Context, row *mediaitem.CachedItem) {
	if err := c.store.DeleteCached(ctx, row.ID); err != nil {
		c.logger.Warn("delete cached row failed", logging.String("cached_id", row.ID), logging.Error(err))
	}
	if err := removeIfExists(row.Path); err != nil {
		c.logger.Warn("delete cached file failed", logging.String("path", row.Path), logging.Error(err))
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
