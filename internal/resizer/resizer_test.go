package resizer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"photobooth/internal/services"
)

type fakeVideo struct {
	scaleCalls  int
	animCalls   int
	lastLength  int
	lastInput   string
	lastOutput  string
	returnError error
}

func (f *fakeVideo) Version(ctx context.Context) (string, error) { return "fake", nil }

func (f *fakeVideo) Scale(ctx context.Context, in, out string, length, bitrate int) error {
	f.scaleCalls++
	f.lastInput, f.lastOutput, f.lastLength = in, out, length
	return f.returnError
}

func (f *fakeVideo) Boomerang(ctx context.Context, in, out string, bitrate int) error {
	return f.returnError
}

func (f *fakeVideo) ResizeAnimation(ctx context.Context, in, out string, length int) error {
	f.animCalls++
	f.lastInput, f.lastOutput, f.lastLength = in, out, length
	return f.returnError
}

func writeTestJPEG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("write test jpeg: %v", err)
	}
}

func writeTestGIF(t *testing.T, path string, frames, width, height int, delay int) {
	t.Helper()
	out := &gif.GIF{LoopCount: 0}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, width, height), palette.Plan9)
		draw.Draw(frame, frame.Bounds(), image.NewUniform(color.NRGBA{uint8(i * 50), 100, 100, 255}), image.Point{}, draw.Src)
		out.Image = append(out.Image, frame)
		out.Delay = append(out.Delay, delay)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := gif.EncodeAll(file, out); err != nil {
		t.Fatalf("write test gif: %v", err)
	}
}

func TestResizeJPEGScalesLongestSide(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	writeTestJPEG(t, src, 1600, 900)

	r := New(nil, 85, 0)
	if err := r.ResizeFile(context.Background(), src, dst, 400); err != nil {
		t.Fatalf("ResizeFile: %v", err)
	}

	img, err := imaging.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 400 {
		t.Fatalf("width = %d, want 400", bounds.Dx())
	}
	if bounds.Dy() != 225 {
		t.Fatalf("height = %d, want 225", bounds.Dy())
	}
}

func TestResizeJPEGIdempotentAtTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	writeTestJPEG(t, src, 400, 225)

	r := New(nil, 85, 0)
	if err := r.ResizeFile(context.Background(), src, dst, 400); err != nil {
		t.Fatalf("ResizeFile: %v", err)
	}
	img, err := imaging.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 225 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestResizeJPEGNeverUpscales(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	writeTestJPEG(t, src, 200, 100)

	r := New(nil, 85, 0)
	if err := r.ResizeFile(context.Background(), src, dst, 800); err != nil {
		t.Fatalf("ResizeFile: %v", err)
	}
	img, err := imaging.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 200 {
		t.Fatalf("small sources must not be upscaled, width = %d", img.Bounds().Dx())
	}
}

func TestResizeGIFKeepsFramesAndTiming(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.gif")
	dst := filepath.Join(dir, "dst.gif")
	writeTestGIF(t, src, 3, 800, 600, 20)

	r := New(nil, 85, 0)
	if err := r.ResizeFile(context.Background(), src, dst, 200); err != nil {
		t.Fatalf("ResizeFile: %v", err)
	}

	file, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	decoded, err := gif.DecodeAll(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Image) != 3 {
		t.Fatalf("frames = %d", len(decoded.Image))
	}
	if decoded.LoopCount != 0 {
		t.Fatalf("loop count = %d, want 0 (forever)", decoded.LoopCount)
	}
	for i, delay := range decoded.Delay {
		if delay != 20 {
			t.Fatalf("frame %d delay = %d", i, delay)
		}
	}
	if decoded.Image[0].Bounds().Dx() != 200 {
		t.Fatalf("frame width = %d", decoded.Image[0].Bounds().Dx())
	}
}

func TestResizeGIFFallbackDelay(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.gif")
	dst := filepath.Join(dir, "dst.gif")
	writeTestGIF(t, src, 2, 100, 100, 0)

	r := New(nil, 85, 0)
	if err := r.ResizeFile(context.Background(), src, dst, 50); err != nil {
		t.Fatalf("ResizeFile: %v", err)
	}

	file, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	decoded, err := gif.DecodeAll(file)
	if err != nil {
		t.Fatal(err)
	}
	for i, delay := range decoded.Delay {
		if delay != 100 {
			t.Fatalf("frame %d delay = %d, want 1000 ms fallback", i, delay)
		}
	}
}

func TestMP4DelegatesToVideoProcessor(t *testing.T) {
	video := &fakeVideo{}
	r := New(video, 85, 4000)
	if err := r.ResizeFile(context.Background(), "/in.mp4", "/out.mp4", 1200); err != nil {
		t.Fatalf("ResizeFile: %v", err)
	}
	if video.scaleCalls != 1 || video.lastLength != 1200 {
		t.Fatalf("scale calls = %d length = %d", video.scaleCalls, video.lastLength)
	}
}

func TestWebPDelegatesToAnimationResize(t *testing.T) {
	video := &fakeVideo{}
	r := New(video, 85, 0)
	if err := r.ResizeFile(context.Background(), "/in.webp", "/out.webp", 400); err != nil {
		t.Fatalf("ResizeFile: %v", err)
	}
	if video.animCalls != 1 {
		t.Fatalf("animation calls = %d", video.animCalls)
	}
}

func TestUnsupportedSuffix(t *testing.T) {
	r := New(nil, 85, 0)
	err := r.ResizeFile(context.Background(), "/in.tiff", "/out.tiff", 400)
	if !errors.Is(err, services.ErrWrongMediaType) {
		t.Fatalf("expected wrong media type, got %v", err)
	}
}

func TestVideoWithoutProcessorFails(t *testing.T) {
	r := New(nil, 85, 0)
	err := r.ResizeFile(context.Background(), "/in.mp4", "/out.mp4", 400)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
