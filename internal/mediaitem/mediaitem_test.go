package mediaitem

import (
	"strings"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	cases := map[string]MediaKind{
		"image":       KindImage,
		"Collage":     KindCollage,
		" animation ": KindAnimation,
		"VIDEO":       KindVideo,
		"multicamera": KindMulticamera,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseKind("panorama"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseDimension(t *testing.T) {
	for _, in := range []string{"full", "preview", "thumbnail"} {
		if _, err := ParseDimension(in); err != nil {
			t.Fatalf("ParseDimension(%q): %v", in, err)
		}
	}
	if _, err := ParseDimension("huge"); err == nil {
		t.Fatal("expected error for unknown dimension")
	}
}

func TestNewAssignsIdentityAndTimestamps(t *testing.T) {
	item := New(KindImage, "job-1", "/u/a.jpg", "/p/a.jpg")
	if item.ID == "" {
		t.Fatal("missing id")
	}
	if item.UpdatedAt.Before(item.CreatedAt) {
		t.Fatal("updated_at must be >= created_at")
	}
	if !item.ShowInGallery {
		t.Fatal("new items default to visible")
	}
	other := New(KindImage, "job-1", "/u/b.jpg", "/p/b.jpg")
	if other.ID == item.ID {
		t.Fatal("ids must be unique")
	}
}

func TestTouchAdvancesUpdatedAt(t *testing.T) {
	item := New(KindImage, "", "/u/a.jpg", "/p/a.jpg")
	before := item.UpdatedAt
	time.Sleep(2 * time.Millisecond)
	item.Touch()
	if !item.UpdatedAt.After(before) {
		t.Fatal("Touch should advance UpdatedAt")
	}
}

func TestNewFilename(t *testing.T) {
	ts := time.Date(2026, 8, 30, 14, 5, 9, 123456000, time.Local)
	got := NewFilename(ts, "jpg")
	if got != "20260830-140509-123456.jpg" {
		t.Fatalf("NewFilename = %q", got)
	}
	if withDot := NewFilename(ts, ".GIF"); withDot != "20260830-140509-123456.gif" {
		t.Fatalf("NewFilename dot-ext = %q", withDot)
	}
}

func TestCachedFilename(t *testing.T) {
	name := CachedFilename("/media/processed_full/20260830-140509-123456.JPG")
	if !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("expected source extension, got %q", name)
	}
	if strings.Contains(name, "-") {
		t.Fatalf("uuid hex should carry no dashes: %q", name)
	}
	if name == CachedFilename("/media/x.jpg") {
		t.Fatal("cached filenames must be unique")
	}
}

func TestExt(t *testing.T) {
	item := New(KindVideo, "", "/u/a.MP4", "/p/a.MP4")
	if item.Ext() != ".mp4" {
		t.Fatalf("Ext = %q", item.Ext())
	}
}
