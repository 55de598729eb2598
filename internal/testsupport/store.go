package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"photobooth/internal/collection"
	"photobooth/internal/config"
	"photobooth/internal/mediaitem"
)

// MustOpenStore opens a collection.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *collection.Store {
	t.Helper()

	store, err := collection.Open(cfg)
	if err != nil {
		t.Fatalf("collection.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedItem writes JPEG artifacts into the media directories, inserts a media
// item referencing them, and returns it.
func SeedItem(t testing.TB, cfg *config.Config, store *collection.Store, kind mediaitem.MediaKind, jobID string) *mediaitem.MediaItem {
	t.Helper()

	name := mediaitem.NewFilename(time.Now(), ".jpg")
	unprocessed := filepath.Join(cfg.UnprocessedDir(), name)
	processed := filepath.Join(cfg.ProcessedDir(), name)
	WriteJPEG(t, unprocessed, 640, 480)
	WriteJPEG(t, processed, 640, 480)

	item := mediaitem.New(kind, jobID, unprocessed, processed)
	if err := store.Insert(context.Background(), item); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return item
}
