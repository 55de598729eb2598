package collection

import (
	"context"
	"log/slog"

	"photobooth/internal/bus"
	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/mediaitem"
	"photobooth/internal/services"
)

// Service is the collection facade used by processing, share, information,
// and the CLI. Every mutation keeps database, artifacts, and derivation
// cache consistent and emits a change event on the bus.
type Service struct {
	cfg    *config.Config
	store  *Store
	cache  *Cache
	events *bus.Bus
	logger *slog.Logger
}

// NewService wires the collection facade.
func NewService(cfg *config.Config, store *Store, cache *Cache, events *bus.Bus, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		events: events,
		logger: logging.NewComponentLogger(logger, "collection"),
	}
}

// Store exposes the underlying store for stats consumers.
func (s *Service) Store() *Store {
	return s.store
}

// Start runs startup maintenance: stale derivations are purged.
func (s *Service) Start(ctx context.Context) error {
	if err := s.cache.Maintain(ctx); err != nil {
		return err
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("collection ready", logging.Int64("items", count))
	return nil
}

// Stop closes the underlying database.
func (s *Service) Stop(ctx context.Context) error {
	return s.store.Close()
}

// Add persists a new item after verifying both artifacts exist on disk.
func (s *Service) Add(ctx context.Context, item *mediaitem.MediaItem) error {
	if err := checkItemFiles(item); err != nil {
		return err
	}
	if err := s.store.Insert(ctx, item); err != nil {
		return services.Wrap(services.ErrPipeline, "collection", "add", "", err)
	}
	s.publish(bus.EventDbInsert, item)
	return nil
}

// Update rewrites an existing item, advancing its UpdatedAt so cached
// derivations are invalidated.
func (s *Service) Update(ctx context.Context, item *mediaitem.MediaItem) error {
	if err := checkItemFiles(item); err != nil {
		return err
	}
	item.Touch()
	if err := s.store.Update(ctx, item); err != nil {
		return services.Wrap(services.ErrPipeline, "collection", "update", "", err)
	}
	s.publish(bus.EventDbUpdate, item)
	return nil
}

// Get fetches one item by identifier.
func (s *Service) Get(ctx context.Context, id string) (*mediaitem.MediaItem, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrPipeline, "collection", "get", "", err)
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "collection", "get", "media item "+id, nil)
	}
	return item, nil
}

// Latest returns the most recently inserted item.
func (s *Service) Latest(ctx context.Context) (*mediaitem.MediaItem, error) {
	item, err := s.store.Latest(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrPipeline, "collection", "latest", "", err)
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "collection", "latest", "collection is empty", nil)
	}
	return item, nil
}

// List pages through items in descending insertion order.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*mediaitem.MediaItem, error) {
	return s.store.List(ctx, limit, offset)
}

// Count returns the number of persisted items.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// ItemsByJob returns all items produced by one job, oldest first.
func (s *Service) ItemsByJob(ctx context.Context, jobID string) ([]*mediaitem.MediaItem, error) {
	return s.store.ItemsByJob(ctx, jobID)
}

// Delete removes an item, its derivations, and its artifacts. Originals go
// to the recycle directory when configured; processed files are always
// hard-deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cache.DropForItem(ctx, item.ID); err != nil {
		return err
	}
	recycleDir := ""
	if s.cfg.Common.DeleteToRecycleDir {
		recycleDir = s.cfg.RecycleDir()
	}
	if err := deleteItemFiles(item, recycleDir); err != nil {
		return services.Wrap(services.ErrPipeline, "collection", "delete", "", err)
	}
	if _, err := s.store.Delete(ctx, item.ID); err != nil {
		return services.Wrap(services.ErrPipeline, "collection", "delete", "", err)
	}
	s.publish(bus.EventDbRemove, item)
	return nil
}

// DeleteJob removes every item carrying the given job identifier. Used by
// the abort rollback.
func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	items, err := s.store.ItemsByJob(ctx, jobID)
	if err != nil {
		return services.Wrap(services.ErrPipeline, "collection", "delete_job", "", err)
	}
	for _, item := range items {
		if err := s.Delete(ctx, item.ID); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll empties the database, the cache, and the media directories.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return err
	}
	removed, err := s.store.ClearAll(ctx)
	if err != nil {
		return services.Wrap(services.ErrPipeline, "collection", "clear_all", "", err)
	}
	for _, dir := range []string{s.cfg.UnprocessedDir(), s.cfg.ProcessedDir()} {
		if err := clearDirContents(dir); err != nil {
			return services.Wrap(services.ErrPipeline, "collection", "clear_all", "", err)
		}
	}
	s.logger.Info("collection cleared", logging.Int64("removed", removed))
	s.events.Publish(bus.EventDbRemove, bus.DbChangePayload{})
	return nil
}

// CachedItemFor resolves the item and returns a valid derivation for it.
func (s *Service) CachedItemFor(ctx context.Context, id string, dimension mediaitem.Dimension, processed bool) (*mediaitem.CachedItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cache.GetCachedItem(ctx, item, dimension, processed)
}

// IncrementUsage bumps the per-action counter.
func (s *Service) IncrementUsage(ctx context.Context, action string) error {
	return s.store.IncrementUsage(ctx, action)
}

// UsageStats returns all per-action counters.
func (s *Service) UsageStats(ctx context.Context) ([]UsageStat, error) {
	return s.store.UsageStats(ctx)
}

func (s *Service) publish(eventType bus.EventType, item *mediaitem.MediaItem) {
	s.events.Publish(eventType, bus.DbChangePayload{ItemID: item.ID, Kind: string(item.Kind)})
}
