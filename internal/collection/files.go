package collection

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"photobooth/internal/fileutil"
	"photobooth/internal/mediaitem"
	"photobooth/internal/services"
)

// checkItemFiles enforces the persistence precondition: both artifacts must
// exist on disk before a record is written.
func checkItemFiles(item *mediaitem.MediaItem) error {
	for _, path := range []string{item.Unprocessed, item.Processed} {
		if path == "" {
			return services.Wrap(services.ErrPipeline, "collection", "check_files", "artifact path missing on item "+item.ID, nil)
		}
		if _, err := os.Stat(path); err != nil {
			return services.Wrap(services.ErrNotFound, "collection", "check_files", path, err)
		}
	}
	return nil
}

// deleteItemFiles removes an item's artifacts. Processed versions are always
// hard-deleted; the unprocessed and captured originals move into recycleDir
// when one is given. Missing files are not an error.
func deleteItemFiles(item *mediaitem.MediaItem, recycleDir string) error {
	if err := removeIfExists(item.Processed); err != nil {
		return err
	}
	for _, original := range []string{item.Unprocessed, item.CapturedOriginal} {
		if original == "" {
			continue
		}
		if recycleDir == "" {
			if err := removeIfExists(original); err != nil {
				return err
			}
			continue
		}
		if err := recycleFile(original, recycleDir); err != nil {
			return err
		}
	}
	return nil
}

func removeIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func recycleFile(path, recycleDir string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(recycleDir, 0o755); err != nil {
		return fmt.Errorf("ensure recycle dir: %w", err)
	}
	target := filepath.Join(recycleDir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(target)
		base := target[:len(target)-len(ext)]
		target = base + "-" + uuid.New().String()[:8] + ext
	}
	if err := fileutil.MoveFile(path, target); err != nil {
		return fmt.Errorf("recycle %s: %w", path, err)
	}
	return nil
}

// clearDirContents removes every entry directly under dir, leaving dir
// itself in place. A missing dir is not an error.
func clearDirContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}
