package mediaproc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"

	"photobooth/internal/pipeline"
	"photobooth/internal/services"
)

// PluginFilter applies a named filter to the context image.
func PluginFilter(name string) pipeline.Step[ImageContext] {
	return func(ctx *ImageContext, next pipeline.Next[ImageContext]) error {
		filtered, err := ApplyFilter(name, ctx.Image)
		if err != nil {
			return err
		}
		ctx.Image = filtered
		return next(ctx)
	}
}

// FillBackground composites the image onto a solid background. Images
// without transparency pass through unchanged.
func FillBackground(hexColor string) pipeline.Step[ImageContext] {
	return func(ctx *ImageContext, next pipeline.Next[ImageContext]) error {
		if !hasTransparency(ctx.Image) {
			return next(ctx)
		}
		bg, err := parseHexColor(hexColor)
		if err != nil {
			return services.Wrap(services.ErrPipeline, "mediaproc", "fill_background", hexColor, err)
		}
		canvas := imaging.New(ctx.Image.Bounds().Dx(), ctx.Image.Bounds().Dy(), bg)
		draw.Draw(canvas, canvas.Bounds(), ctx.Image, image.Point{}, draw.Over)
		ctx.Image = canvas
		return next(ctx)
	}
}

// ImageMount pastes the input over a backdrop covered to the input's size.
// With reverse the backdrop is pasted over the input instead, using the
// backdrop's own alpha as mask. Without reverse the step skips silently when
// the input has no transparency to show the backdrop through.
func ImageMount(file string, reverse bool) pipeline.Step[ImageContext] {
	return func(ctx *ImageContext, next pipeline.Next[ImageContext]) error {
		if !reverse && !hasTransparency(ctx.Image) {
			return next(ctx)
		}
		backdrop, err := loadAsset(file)
		if err != nil {
			return err
		}
		bounds := ctx.Image.Bounds()
		fitted := imaging.Fill(backdrop, bounds.Dx(), bounds.Dy(), imaging.Center, imaging.Lanczos)

		if reverse {
			draw.Draw(ctx.Image, bounds, fitted, image.Point{}, draw.Over)
			return next(ctx)
		}
		canvas := imaging.Clone(fitted)
		draw.Draw(canvas, bounds, ctx.Image, image.Point{}, draw.Over)
		ctx.Image = canvas
		return next(ctx)
	}
}

// ImageFrame composes the input into the transparent hole of a frame image
// and places the frame in front. A frame without a transparent region is a
// pipeline error.
func ImageFrame(file string) pipeline.Step[ImageContext] {
	return func(ctx *ImageContext, next pipeline.Next[ImageContext]) error {
		frame, err := loadAsset(file)
		if err != nil {
			return err
		}
		hole, ok := transparentBounds(frame)
		if !ok {
			return services.Wrap(services.ErrPipeline, "mediaproc", "image_frame", "frame has no transparent region: "+file, nil)
		}
		fitted := imaging.Fill(ctx.Image, hole.Dx(), hole.Dy(), imaging.Center, imaging.Lanczos)
		canvas := imaging.New(frame.Bounds().Dx(), frame.Bounds().Dy(), color.NRGBA{})
		draw.Draw(canvas, hole, fitted, image.Point{}, draw.Over)
		draw.Draw(canvas, canvas.Bounds(), frame, image.Point{}, draw.Over)
		ctx.Image = canvas
		return next(ctx)
	}
}

// Removebg is the AI background-removal slot. Without a configured model the
// step passes through; chromakey removal covers the transparency use case.
// Preview renders always skip it to bound latency.
func Removebg(model string) pipeline.Step[ImageContext] {
	return func(ctx *ImageContext, next pipeline.Next[ImageContext]) error {
		if ctx.Preview || model == "" {
			return next(ctx)
		}
		return services.Wrap(services.ErrConfiguration, "mediaproc", "removebg",
			fmt.Sprintf("segmentation model %q is not available, disable removebg or use chromakey", model), nil)
	}
}

func loadAsset(file string) (*image.NRGBA, error) {
	if file == "" {
		return nil, services.Wrap(services.ErrPipeline, "mediaproc", "load_asset", "asset path missing", nil)
	}
	if _, err := os.Stat(file); err != nil {
		return nil, services.Wrap(services.ErrPipeline, "mediaproc", "load_asset", file, err)
	}
	img, err := imaging.Open(file)
	if err != nil {
		return nil, services.Wrap(services.ErrPipeline, "mediaproc", "load_asset", file, err)
	}
	return imaging.Clone(img), nil
}

// transparentBounds returns the bounding box of pixels with alpha below
// half coverage. The bool reports whether any such pixel exists.
func transparentBounds(img *image.NRGBA) (image.Rectangle, bool) {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X, bounds.Min.Y
	found := false
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			alpha := img.Pix[row+(x-bounds.Min.X)*4+3]
			if alpha < 0x80 {
				found = true
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if !found {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

func parseHexColor(value string) (color.NRGBA, error) {
	if len(value) != 7 || value[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", value)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(value[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}
