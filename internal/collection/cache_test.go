package collection_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photobooth/internal/collection"
	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/mediaitem"
	"photobooth/internal/resizer"
	"photobooth/internal/testsupport"
)

func newTestCache(t *testing.T, cfg *config.Config, store *collection.Store) *collection.Cache {
	t.Helper()
	rz := resizer.New(nil, cfg.Mediaprocessing.StillQuality, cfg.Mediaprocessing.VideoBitrateKbps)
	return collection.NewCache(cfg, store, rz, logging.NewNop())
}

func TestGetCachedItemGeneratesAndReuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := newTestCache(t, cfg, store)
	ctx := context.Background()

	item := testsupport.SeedItem(t, cfg, store, mediaitem.KindImage, "job")
	time.Sleep(5 * time.Millisecond)

	first, err := cache.GetCachedItem(ctx, item, mediaitem.DimensionThumbnail, true)
	if err != nil {
		t.Fatalf("GetCachedItem: %v", err)
	}
	if !strings.HasPrefix(first.Path, cfg.CacheDir()) {
		t.Fatalf("derivation outside cache dir: %s", first.Path)
	}
	if !strings.HasSuffix(first.Path, ".jpg") {
		t.Fatalf("derivation lost source extension: %s", first.Path)
	}
	base := strings.TrimSuffix(filepath.Base(first.Path), ".jpg")
	if len(base) != 32 {
		t.Fatalf("expected uuid hex name, got %q", base)
	}
	if _, err := os.Stat(first.Path); err != nil {
		t.Fatalf("derived file missing: %v", err)
	}
	if !item.UpdatedAt.Before(first.CreatedAt) {
		t.Fatal("cached row not newer than source")
	}

	second, err := cache.GetCachedItem(ctx, item, mediaitem.DimensionThumbnail, true)
	if err != nil {
		t.Fatalf("GetCachedItem again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("valid derivation regenerated: %s vs %s", second.ID, first.ID)
	}
}

func TestGetCachedItemRegeneratesWhenSourceChanges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := newTestCache(t, cfg, store)
	ctx := context.Background()

	item := testsupport.SeedItem(t, cfg, store, mediaitem.KindImage, "job")
	time.Sleep(5 * time.Millisecond)

	first, err := cache.GetCachedItem(ctx, item, mediaitem.DimensionPreview, true)
	if err != nil {
		t.Fatalf("GetCachedItem: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	item.Touch()
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	second, err := cache.GetCachedItem(ctx, item, mediaitem.DimensionPreview, true)
	if err != nil {
		t.Fatalf("GetCachedItem after update: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("stale derivation returned")
	}
	if !second.CreatedAt.After(item.UpdatedAt) {
		t.Fatalf("new row created_at %v not after source updated_at %v", second.CreatedAt, item.UpdatedAt)
	}
	if _, err := os.Stat(first.Path); !os.IsNotExist(err) {
		t.Fatalf("stale derivation file kept: %v", err)
	}
}

func TestGetCachedItemRegeneratesWhenFileMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := newTestCache(t, cfg, store)
	ctx := context.Background()

	item := testsupport.SeedItem(t, cfg, store, mediaitem.KindImage, "job")
	time.Sleep(5 * time.Millisecond)

	first, err := cache.GetCachedItem(ctx, item, mediaitem.DimensionThumbnail, false)
	if err != nil {
		t.Fatalf("GetCachedItem: %v", err)
	}
	if err := os.Remove(first.Path); err != nil {
		t.Fatalf("remove derived file: %v", err)
	}

	second, err := cache.GetCachedItem(ctx, item, mediaitem.DimensionThumbnail, false)
	if err != nil {
		t.Fatalf("GetCachedItem after removal: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("row with missing file returned")
	}
	if _, err := os.Stat(second.Path); err != nil {
		t.Fatalf("regenerated file missing: %v", err)
	}
}

func TestMaintainPurgesStaleDerivations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := newTestCache(t, cfg, store)
	ctx := context.Background()

	item := testsupport.SeedItem(t, cfg, store, mediaitem.KindImage, "job")
	time.Sleep(5 * time.Millisecond)

	cached, err := cache.GetCachedItem(ctx, item, mediaitem.DimensionThumbnail, true)
	if err != nil {
		t.Fatalf("GetCachedItem: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	item.Touch()
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := cache.Maintain(ctx); err != nil {
		t.Fatalf("Maintain: %v", err)
	}
	row, err := store.CachedByTriple(ctx, item.ID, mediaitem.DimensionThumbnail, true)
	if err != nil {
		t.Fatalf("CachedByTriple: %v", err)
	}
	if row != nil {
		t.Fatalf("stale row survived maintenance: %+v", row)
	}
	if _, err := os.Stat(cached.Path); !os.IsNotExist(err) {
		t.Fatalf("stale file survived maintenance: %v", err)
	}
}

func TestClearEmptiesCacheDirAndRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := newTestCache(t, cfg, store)
	ctx := context.Background()

	item := testsupport.SeedItem(t, cfg, store, mediaitem.KindImage, "job")
	time.Sleep(5 * time.Millisecond)
	if _, err := cache.GetCachedItem(ctx, item, mediaitem.DimensionThumbnail, true); err != nil {
		t.Fatalf("GetCachedItem: %v", err)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err := os.ReadDir(cfg.CacheDir())
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cache dir not empty: %d entries", len(entries))
	}
}
