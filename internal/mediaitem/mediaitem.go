// Package mediaitem defines the media item and cached item data model shared
// by the collection store, derivation cache, and processing services.
package mediaitem

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaKind identifies the kind of a stored media item.
type MediaKind string

const (
	KindImage       MediaKind = "image"
	KindCollage     MediaKind = "collage"
	KindAnimation   MediaKind = "animation"
	KindVideo       MediaKind = "video"
	KindMulticamera MediaKind = "multicamera"
)

// ParseKind converts a string into a MediaKind.
func ParseKind(value string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(value))) {
	case KindImage:
		return KindImage, nil
	case KindCollage:
		return KindCollage, nil
	case KindAnimation:
		return KindAnimation, nil
	case KindVideo:
		return KindVideo, nil
	case KindMulticamera:
		return KindMulticamera, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", value)
	}
}

// Valid reports whether the kind is one of the recognized values.
func (k MediaKind) Valid() bool {
	switch k {
	case KindImage, KindCollage, KindAnimation, KindVideo, KindMulticamera:
		return true
	default:
		return false
	}
}

// Dimension selects a derivation size class.
type Dimension string

const (
	DimensionFull      Dimension = "full"
	DimensionPreview   Dimension = "preview"
	DimensionThumbnail Dimension = "thumbnail"
)

// ParseDimension converts a string into a Dimension.
func ParseDimension(value string) (Dimension, error) {
	switch Dimension(strings.ToLower(strings.TrimSpace(value))) {
	case DimensionFull:
		return DimensionFull, nil
	case DimensionPreview:
		return DimensionPreview, nil
	case DimensionThumbnail:
		return DimensionThumbnail, nil
	default:
		return "", fmt.Errorf("unknown dimension %q", value)
	}
}

// MediaItem is one unit of user-produced media. The unprocessed and processed
// files must both exist on disk for every persisted record; the store checks
// this on insert and update.
type MediaItem struct {
	// ID is immutable after insert.
	ID string
	// Seq is the monotonic insertion order assigned by the store. Latest
	// queries use it instead of CreatedAt because timestamp resolution can
	// be too coarse for burst captures.
	Seq       int64
	Kind      MediaKind
	CreatedAt time.Time
	UpdatedAt time.Time

	// JobID groups items produced by the same user action.
	JobID string

	Unprocessed      string
	Processed        string
	CapturedOriginal string

	// PipelineConfig is an opaque JSON blob recording the processing that
	// produced the item (filter, frame, merge definition and so on).
	PipelineConfig string

	ShowInGallery bool
}

// New creates a MediaItem with a fresh identifier and matching timestamps.
func New(kind MediaKind, jobID, unprocessed, processed string) *MediaItem {
	now := time.Now()
	return &MediaItem{
		ID:            uuid.New().String(),
		Kind:          kind,
		CreatedAt:     now,
		UpdatedAt:     now,
		JobID:         jobID,
		Unprocessed:   unprocessed,
		Processed:     processed,
		ShowInGallery: true,
	}
}

// Ext returns the lowercased file extension of the processed artifact.
func (m *MediaItem) Ext() string {
	return strings.ToLower(filepath.Ext(m.Processed))
}

// Touch advances UpdatedAt, invalidating cached derivations.
func (m *MediaItem) Touch() {
	m.UpdatedAt = time.Now()
}

// CachedItem is a derivation of a MediaItem. The identity key is the triple
// (MediaItemID, Dimension, Processed); at most one valid row exists per
// triple. A row is valid only while the source's UpdatedAt is strictly older
// than CreatedAt and the derived file still exists.
type CachedItem struct {
	ID          string
	MediaItemID string
	Dimension   Dimension
	// Processed records whether the derivation was rendered from the
	// processed or the unprocessed artifact.
	Processed bool
	Path      string
	CreatedAt time.Time
}

// NewCached creates a CachedItem row for a freshly generated derivation.
func NewCached(mediaItemID string, dimension Dimension, processed bool, path string) *CachedItem {
	return &CachedItem{
		ID:          uuid.New().String(),
		MediaItemID: mediaItemID,
		Dimension:   dimension,
		Processed:   processed,
		Path:        path,
		CreatedAt:   time.Now(),
	}
}

// CachedFilename builds the on-disk name for a derivation: a fresh uuid hex
// with the source's extension appended.
func CachedFilename(sourcePath string) string {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	return strings.ReplaceAll(uuid.New().String(), "-", "") + ext
}

// NewFilename generates the canonical capture filename for the given time
// and extension: YYYYMMDD-HHMMSS-ffffff.ext (microsecond suffix keeps burst
// captures unique).
func NewFilename(t time.Time, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	micros := t.Nanosecond() / 1000
	return fmt.Sprintf("%s-%06d%s", t.Format("20060102-150405"), micros, strings.ToLower(ext))
}
