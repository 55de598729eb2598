package mediaproc_test

import (
	"context"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/mediaproc"
	"photobooth/internal/testsupport"
)

type fakeVideoProcessor struct {
	boomerangCalls int
	lastInput      string
	lastOutput     string
}

func (f *fakeVideoProcessor) Version(ctx context.Context) (string, error) { return "fake", nil }

func (f *fakeVideoProcessor) Scale(ctx context.Context, in, out string, length, bitrate int) error {
	return nil
}

func (f *fakeVideoProcessor) Boomerang(ctx context.Context, in, out string, bitrate int) error {
	f.boomerangCalls++
	f.lastInput, f.lastOutput = in, out
	return os.WriteFile(out, []byte("boomerang"), 0o644)
}

func (f *fakeVideoProcessor) ResizeAnimation(ctx context.Context, in, out string, length int) error {
	return nil
}

func newTestProcessor(t *testing.T) (*mediaproc.Processor, *config.Config, *fakeVideoProcessor) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	video := &fakeVideoProcessor{}
	return mediaproc.NewProcessor(cfg, video, logging.NewNop()), cfg, video
}

func TestPhase1ImageWritesProcessedStill(t *testing.T) {
	proc, cfg, _ := newTestProcessor(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "capture.jpg")
	output := filepath.Join(dir, "processed.jpg")
	testsupport.WriteJPEG(t, source, 320, 240)

	def := config.SinglePictureDefinition{Filter: "sepia"}
	if err := proc.Phase1Image(context.Background(), source, def, false, output); err != nil {
		t.Fatalf("Phase1Image: %v", err)
	}
	img, err := imaging.Open(output)
	if err != nil {
		t.Fatalf("decode processed: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	_ = cfg
}

func TestComposeCollageWritesCanvas(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	dir := t.TempDir()
	var sources []string
	for i := 0; i < 2; i++ {
		path := filepath.Join(dir, "capture"+string(rune('a'+i))+".jpg")
		testsupport.WriteJPEG(t, path, 100, 100)
		sources = append(sources, path)
	}
	output := filepath.Join(dir, "collage.jpg")

	collage := config.CollageProcessing{
		CanvasWidth:  200,
		CanvasHeight: 100,
		MergeDefinition: []config.CollageMergeDefinition{
			{PosX: 0, PosY: 0, Width: 100, Height: 100},
			{PosX: 100, PosY: 0, Width: 100, Height: 100},
		},
		CanvasFillBackgroundEnable: true,
		CanvasFillBackgroundColor:  "#ffffff",
	}
	if err := proc.ComposeCollage(context.Background(), sources, collage, output); err != nil {
		t.Fatalf("ComposeCollage: %v", err)
	}
	img, err := imaging.Open(output)
	if err != nil {
		t.Fatalf("decode collage: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestComposeAnimationWritesLoopingGIF(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	dir := t.TempDir()
	var sources []string
	for i := 0; i < 2; i++ {
		path := filepath.Join(dir, "frame"+string(rune('a'+i))+".jpg")
		testsupport.WriteJPEG(t, path, 80, 60)
		sources = append(sources, path)
	}
	output := filepath.Join(dir, "animation.gif")

	animation := config.AnimationProcessing{
		CanvasWidth:  40,
		CanvasHeight: 30,
		MergeDefinition: []config.AnimationMergeDefinition{
			{DurationMillis: 1500},
			{DurationMillis: 500},
		},
	}
	if err := proc.ComposeAnimation(context.Background(), sources, animation, output); err != nil {
		t.Fatalf("ComposeAnimation: %v", err)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	decoded, err := gif.DecodeAll(file)
	if err != nil {
		t.Fatalf("decode gif: %v", err)
	}
	if decoded.LoopCount != 0 {
		t.Fatalf("loop count = %d, want 0 (forever)", decoded.LoopCount)
	}
	if len(decoded.Image) != 2 {
		t.Fatalf("frames = %d", len(decoded.Image))
	}
	if decoded.Delay[0] != 150 || decoded.Delay[1] != 50 {
		t.Fatalf("delays = %v", decoded.Delay)
	}
}

func TestComposeWigglegramPingPongs(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	dir := t.TempDir()
	var sources []string
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "cam"+string(rune('a'+i))+".jpg")
		testsupport.WriteJPEG(t, path, 60, 60)
		sources = append(sources, path)
	}
	output := filepath.Join(dir, "wigglegram.gif")

	multicam := config.MulticameraProcessing{FrameDurationMillis: 120}
	if err := proc.ComposeWigglegram(context.Background(), sources, multicam, output); err != nil {
		t.Fatalf("ComposeWigglegram: %v", err)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	decoded, err := gif.DecodeAll(file)
	if err != nil {
		t.Fatalf("decode gif: %v", err)
	}
	if len(decoded.Image) != 4 {
		t.Fatalf("ping-pong of 3 frames should yield 4, got %d", len(decoded.Image))
	}
	for i, delay := range decoded.Delay {
		if delay != 12 {
			t.Fatalf("frame %d delay = %d, want 12", i, delay)
		}
	}
}

func TestProcessVideoCopiesWithoutBoomerang(t *testing.T) {
	proc, _, video := newTestProcessor(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "recording.mp4")
	output := filepath.Join(dir, "processed.mp4")
	testsupport.WriteFile(t, input, 1024)

	if err := proc.ProcessVideo(context.Background(), input, config.VideoProcessing{}, output); err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		t.Fatalf("processed file missing: %v", err)
	}
	if info.Size() != 1024 {
		t.Fatalf("size = %d, want 1024", info.Size())
	}
	if video.boomerangCalls != 0 {
		t.Fatal("boomerang invoked without being configured")
	}
}

func TestProcessVideoBoomerang(t *testing.T) {
	proc, _, video := newTestProcessor(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "recording.mp4")
	output := filepath.Join(dir, "processed.mp4")
	testsupport.WriteFile(t, input, 64)

	if err := proc.ProcessVideo(context.Background(), input, config.VideoProcessing{Boomerang: true}, output); err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if video.boomerangCalls != 1 || video.lastInput != input || video.lastOutput != output {
		t.Fatalf("boomerang calls = %d input = %s output = %s", video.boomerangCalls, video.lastInput, video.lastOutput)
	}
}
