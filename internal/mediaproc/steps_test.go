package mediaproc_test

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/mediaproc"
	"photobooth/internal/pipeline"
	"photobooth/internal/services"
)

func solidImage(width, height int, c color.NRGBA) *image.NRGBA {
	return imaging.New(width, height, c)
}

func runImageStep(t *testing.T, step pipeline.Step[mediaproc.ImageContext], ctx *mediaproc.ImageContext) error {
	t.Helper()
	return pipeline.New(step).Run(ctx)
}

func TestApplyFilterUnknownName(t *testing.T) {
	_, err := mediaproc.ApplyFilter("nope", solidImage(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	if !errors.Is(err, services.ErrPipeline) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
}

func TestApplyFilterOriginalIsIdentity(t *testing.T) {
	img := solidImage(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	out, err := mediaproc.ApplyFilter("original", img)
	if err != nil {
		t.Fatalf("ApplyFilter: %v", err)
	}
	if out != img {
		t.Fatal("original filter must not copy the image")
	}
}

func TestApplyFilterPreservesAlpha(t *testing.T) {
	img := solidImage(4, 4, color.NRGBA{R: 200, G: 40, B: 40, A: 128})
	out, err := mediaproc.ApplyFilter("grayscale", img)
	if err != nil {
		t.Fatalf("ApplyFilter: %v", err)
	}
	if got := out.NRGBAAt(2, 2).A; got != 128 {
		t.Fatalf("alpha = %d, want 128", got)
	}
	if c := out.NRGBAAt(2, 2); c.R != c.G || c.G != c.B {
		t.Fatalf("not grayscale: %+v", c)
	}
}

func TestFilterNamesIncludesBuiltins(t *testing.T) {
	names := mediaproc.FilterNames()
	want := map[string]bool{"original": false, "grayscale": false, "sepia": false}
	for _, name := range names {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("filter %q not registered", name)
		}
	}
}

func TestFillBackgroundSkipsOpaqueInput(t *testing.T) {
	ctx := &mediaproc.ImageContext{Image: solidImage(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})}
	if err := runImageStep(t, mediaproc.FillBackground("#ff0000"), ctx); err != nil {
		t.Fatalf("FillBackground: %v", err)
	}
	if c := ctx.Image.NRGBAAt(1, 1); c.R != 10 || c.G != 20 || c.B != 30 {
		t.Fatalf("opaque input changed: %+v", c)
	}
}

func TestFillBackgroundCompositesTransparentInput(t *testing.T) {
	ctx := &mediaproc.ImageContext{Image: solidImage(4, 4, color.NRGBA{})}
	if err := runImageStep(t, mediaproc.FillBackground("#0000ff"), ctx); err != nil {
		t.Fatalf("FillBackground: %v", err)
	}
	c := ctx.Image.NRGBAAt(1, 1)
	if c.B != 255 || c.A != 255 {
		t.Fatalf("background not filled: %+v", c)
	}
}

func TestImageMountSkipsWithoutTransparency(t *testing.T) {
	ctx := &mediaproc.ImageContext{Image: solidImage(4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})}
	// The backdrop path does not exist; the skip must happen before loading.
	if err := runImageStep(t, mediaproc.ImageMount("/does/not/exist.png", false), ctx); err != nil {
		t.Fatalf("expected silent skip, got %v", err)
	}
}

func TestImageMountReversePastesFrontImage(t *testing.T) {
	dir := t.TempDir()
	front := filepath.Join(dir, "front.png")
	overlay := solidImage(8, 8, color.NRGBA{})
	for x := 0; x < 4; x++ {
		for y := 0; y < 8; y++ {
			overlay.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	if err := imaging.Save(overlay, front); err != nil {
		t.Fatalf("save overlay: %v", err)
	}

	ctx := &mediaproc.ImageContext{Image: solidImage(8, 8, color.NRGBA{G: 255, A: 255})}
	if err := runImageStep(t, mediaproc.ImageMount(front, true), ctx); err != nil {
		t.Fatalf("ImageMount: %v", err)
	}
	if c := ctx.Image.NRGBAAt(1, 1); c.R != 255 {
		t.Fatalf("front overlay not applied: %+v", c)
	}
	if c := ctx.Image.NRGBAAt(6, 6); c.G != 255 {
		t.Fatalf("transparent overlay region must show input: %+v", c)
	}
}

func TestImageFrameRequiresTransparentHole(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	if err := imaging.Save(solidImage(16, 16, color.NRGBA{R: 50, G: 50, B: 50, A: 255}), framePath); err != nil {
		t.Fatalf("save frame: %v", err)
	}

	ctx := &mediaproc.ImageContext{Image: solidImage(8, 8, color.NRGBA{R: 255, A: 255})}
	err := runImageStep(t, mediaproc.ImageFrame(framePath), ctx)
	if !errors.Is(err, services.ErrPipeline) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
}

func TestImageFrameCompositesIntoHole(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	frame := solidImage(16, 16, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	for x := 4; x < 12; x++ {
		for y := 4; y < 12; y++ {
			frame.SetNRGBA(x, y, color.NRGBA{})
		}
	}
	if err := imaging.Save(frame, framePath); err != nil {
		t.Fatalf("save frame: %v", err)
	}

	ctx := &mediaproc.ImageContext{Image: solidImage(8, 8, color.NRGBA{R: 255, A: 255})}
	if err := runImageStep(t, mediaproc.ImageFrame(framePath), ctx); err != nil {
		t.Fatalf("ImageFrame: %v", err)
	}
	if got := ctx.Image.Bounds(); got.Dx() != 16 || got.Dy() != 16 {
		t.Fatalf("output must take frame dimensions, got %v", got)
	}
	if c := ctx.Image.NRGBAAt(8, 8); c.R != 255 {
		t.Fatalf("input not visible through hole: %+v", c)
	}
	if c := ctx.Image.NRGBAAt(1, 1); c.R != 50 {
		t.Fatalf("frame not in front: %+v", c)
	}
}

func TestRemovebgBehavior(t *testing.T) {
	opaque := func() *mediaproc.ImageContext {
		return &mediaproc.ImageContext{Image: solidImage(4, 4, color.NRGBA{R: 1, A: 255})}
	}

	if err := runImageStep(t, mediaproc.Removebg(""), opaque()); err != nil {
		t.Fatalf("no model must pass through, got %v", err)
	}

	preview := opaque()
	preview.Preview = true
	if err := runImageStep(t, mediaproc.Removebg("u2net"), preview); err != nil {
		t.Fatalf("preview must skip, got %v", err)
	}

	err := runImageStep(t, mediaproc.Removebg("u2net"), opaque())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for configured model, got %v", err)
	}
}

func TestRemoveChromakeyMasksKeycolor(t *testing.T) {
	img := solidImage(8, 8, color.NRGBA{G: 200, A: 255})
	for x := 0; x < 4; x++ {
		for y := 0; y < 8; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	ctx := &mediaproc.ImageContext{Image: img}
	if err := runImageStep(t, mediaproc.RemoveChromakey(120, 20), ctx); err != nil {
		t.Fatalf("RemoveChromakey: %v", err)
	}
	if a := ctx.Image.NRGBAAt(6, 4).A; a > 64 {
		t.Fatalf("keyed pixel alpha = %d, want near 0", a)
	}
	if a := ctx.Image.NRGBAAt(1, 4).A; a < 192 {
		t.Fatalf("red pixel alpha = %d, want near opaque", a)
	}
}

func TestTextRendersOntoImage(t *testing.T) {
	ctx := &mediaproc.ImageContext{Image: solidImage(120, 40, color.NRGBA{A: 255})}
	texts := []config.TextConfig{{Text: "hello {date}", PosX: 2, PosY: 2, Color: "#ffffff"}}
	if err := runImageStep(t, mediaproc.Text(texts), ctx); err != nil {
		t.Fatalf("Text: %v", err)
	}
	touched := false
	for x := 0; x < 120 && !touched; x++ {
		for y := 0; y < 40; y++ {
			if c := ctx.Image.NRGBAAt(x, y); c.R > 0 {
				touched = true
				break
			}
		}
	}
	if !touched {
		t.Fatal("no text pixels rendered")
	}
}

func TestTextMissingFontFails(t *testing.T) {
	ctx := &mediaproc.ImageContext{Image: solidImage(32, 32, color.NRGBA{A: 255})}
	texts := []config.TextConfig{{Text: "x", Font: "/no/such/font.ttf", Color: "#ffffff"}}
	err := runImageStep(t, mediaproc.Text(texts), ctx)
	if !errors.Is(err, services.ErrPipeline) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
}

func TestMergeCollageCountMismatch(t *testing.T) {
	defs := []config.CollageMergeDefinition{
		{Width: 10, Height: 10},
		{Width: 10, Height: 10},
	}
	ctx := &mediaproc.CollageContext{
		Canvas: solidImage(40, 20, color.NRGBA{A: 255}),
		Images: []*image.NRGBA{solidImage(10, 10, color.NRGBA{R: 255, A: 255})},
	}
	err := pipeline.New(mediaproc.MergeCollage(defs)).Run(ctx)
	if !errors.Is(err, services.ErrPipeline) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
}

func TestMergeCollagePlacesSlots(t *testing.T) {
	defs := []config.CollageMergeDefinition{
		{PosX: 0, PosY: 0, Width: 10, Height: 20},
		{PosX: 10, PosY: 0, Width: 10, Height: 20},
	}
	ctx := &mediaproc.CollageContext{
		Canvas: solidImage(20, 20, color.NRGBA{}),
		Images: []*image.NRGBA{
			solidImage(10, 20, color.NRGBA{R: 255, A: 255}),
			solidImage(10, 20, color.NRGBA{B: 255, A: 255}),
		},
	}
	if err := pipeline.New(mediaproc.MergeCollage(defs)).Run(ctx); err != nil {
		t.Fatalf("MergeCollage: %v", err)
	}
	if c := ctx.Canvas.NRGBAAt(4, 10); c.R != 255 {
		t.Fatalf("slot 0 missing: %+v", c)
	}
	if c := ctx.Canvas.NRGBAAt(15, 10); c.B != 255 {
		t.Fatalf("slot 1 missing: %+v", c)
	}
}

func TestAddPredefinedImagesFillsSlots(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "logo.png")
	if err := imaging.Save(solidImage(6, 6, color.NRGBA{B: 255, A: 255}), asset); err != nil {
		t.Fatalf("save asset: %v", err)
	}

	defs := []config.CollageMergeDefinition{
		{Width: 6, Height: 6},
		{Width: 6, Height: 6, PredefinedImage: asset, Filter: "original"},
		{Width: 6, Height: 6},
	}
	ctx := &mediaproc.CollageContext{
		Canvas: solidImage(18, 6, color.NRGBA{}),
		Images: []*image.NRGBA{
			solidImage(6, 6, color.NRGBA{R: 255, A: 255}),
			solidImage(6, 6, color.NRGBA{G: 255, A: 255}),
		},
	}
	if err := pipeline.New(mediaproc.AddPredefinedImages(defs)).Run(ctx); err != nil {
		t.Fatalf("AddPredefinedImages: %v", err)
	}
	if len(ctx.Images) != 3 {
		t.Fatalf("slots = %d, want 3", len(ctx.Images))
	}
	if c := ctx.Images[0].NRGBAAt(3, 3); c.R != 255 {
		t.Fatalf("slot 0 should be first capture: %+v", c)
	}
	if c := ctx.Images[1].NRGBAAt(3, 3); c.B != 255 {
		t.Fatalf("slot 1 should be the asset: %+v", c)
	}
	if c := ctx.Images[2].NRGBAAt(3, 3); c.G != 255 {
		t.Fatalf("slot 2 should be second capture: %+v", c)
	}
}

func TestAddPredefinedImagesLeftoverCaptures(t *testing.T) {
	defs := []config.CollageMergeDefinition{{Width: 6, Height: 6}}
	ctx := &mediaproc.CollageContext{
		Canvas: solidImage(6, 6, color.NRGBA{}),
		Images: []*image.NRGBA{
			solidImage(6, 6, color.NRGBA{R: 255, A: 255}),
			solidImage(6, 6, color.NRGBA{G: 255, A: 255}),
		},
	}
	err := pipeline.New(mediaproc.AddPredefinedImages(defs)).Run(ctx)
	if !errors.Is(err, services.ErrPipeline) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
}

func TestAlignSizesCoversFrames(t *testing.T) {
	ctx := &mediaproc.AnimationContext{
		Images: []*image.NRGBA{
			solidImage(100, 50, color.NRGBA{R: 255, A: 255}),
			solidImage(30, 60, color.NRGBA{G: 255, A: 255}),
		},
	}
	if err := pipeline.New(mediaproc.AlignSizes(40, 40)).Run(ctx); err != nil {
		t.Fatalf("AlignSizes: %v", err)
	}
	for i, frame := range ctx.Images {
		if frame.Bounds().Dx() != 40 || frame.Bounds().Dy() != 40 {
			t.Fatalf("frame %d bounds = %v", i, frame.Bounds())
		}
	}
}

func TestAlignAsPerCalibrationWithoutFilePassesThrough(t *testing.T) {
	frames := []*image.NRGBA{solidImage(8, 8, color.NRGBA{R: 255, A: 255})}
	ctx := &mediaproc.MulticameraContext{Images: frames}
	step := mediaproc.AlignAsPerCalibration(filepath.Join(t.TempDir(), "missing.json"), logging.NewNop())
	if err := pipeline.New(step).Run(ctx); err != nil {
		t.Fatalf("expected pass-through, got %v", err)
	}
	if ctx.Images[0] != frames[0] {
		t.Fatal("frames must pass through unchanged")
	}
}
