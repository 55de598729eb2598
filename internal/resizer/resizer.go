// Package resizer scales media files to a target longest-side length. The
// behavior dispatches on the source suffix: still images and GIFs are handled
// in-process, animated WebP/AVIF and MP4 delegate to ffmpeg.
package resizer

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"photobooth/internal/services"
	"photobooth/internal/services/ffmpeg"
)

// Resizer produces scaled derivations of stored media files.
type Resizer struct {
	video        ffmpeg.Processor
	jpegQuality  int
	videoBitrate int
}

// New constructs a resizer. The ffmpeg processor is required for webp, avif,
// and mp4 sources.
func New(video ffmpeg.Processor, jpegQuality, videoBitrateKbps int) *Resizer {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 85
	}
	return &Resizer{
		video:        video,
		jpegQuality:  jpegQuality,
		videoBitrate: videoBitrateKbps,
	}
}

// ResizeFile scales sourcePath to destPath so the longest side equals length.
// Sources already at or below the target are re-encoded without upscaling.
func (r *Resizer) ResizeFile(ctx context.Context, sourcePath, destPath string, length int) error {
	if length <= 0 {
		return services.Wrap(services.ErrConfiguration, "resizer", "resize", "target length must be positive", nil)
	}
	switch suffix := strings.ToLower(filepath.Ext(sourcePath)); suffix {
	case ".jpg", ".jpeg":
		return r.resizeJPEG(sourcePath, destPath, length)
	case ".gif":
		return r.resizeGIF(sourcePath, destPath, length)
	case ".webp", ".avif":
		return r.resizeViaFFmpeg(ctx, sourcePath, destPath, length, false)
	case ".mp4":
		return r.resizeViaFFmpeg(ctx, sourcePath, destPath, length, true)
	default:
		return services.Wrap(services.ErrWrongMediaType, "resizer", "resize", fmt.Sprintf("unsupported suffix %q", suffix), nil)
	}
}

func (r *Resizer) resizeJPEG(sourcePath, destPath string, length int) error {
	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return services.Wrap(services.ErrPipeline, "resizer", "decode", sourcePath, err)
	}
	scaled := fitToLength(img, length)
	if err := imaging.Save(scaled, destPath, imaging.JPEGQuality(r.jpegQuality)); err != nil {
		return services.Wrap(services.ErrPipeline, "resizer", "encode", destPath, err)
	}
	return nil
}

func (r *Resizer) resizeGIF(sourcePath, destPath string, length int) error {
	file, err := os.Open(sourcePath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "resizer", "open", sourcePath, err)
	}
	defer file.Close()

	source, err := gif.DecodeAll(file)
	if err != nil {
		return services.Wrap(services.ErrPipeline, "resizer", "decode", sourcePath, err)
	}
	if len(source.Image) == 0 {
		return services.Wrap(services.ErrPipeline, "resizer", "decode", "gif has no frames", nil)
	}

	out := &gif.GIF{LoopCount: 0}
	for i, frame := range source.Image {
		scaled := fitToLength(frame, length)
		paletted := image.NewPaletted(scaled.Bounds(), frame.Palette)
		draw.FloydSteinberg.Draw(paletted, scaled.Bounds(), scaled, image.Point{})
		out.Image = append(out.Image, paletted)

		delay := 100 // 1000 ms fallback, in 1/100ths of a second
		if i < len(source.Delay) && source.Delay[i] > 0 {
			delay = source.Delay[i]
		}
		out.Delay = append(out.Delay, delay)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return services.Wrap(services.ErrPipeline, "resizer", "create", destPath, err)
	}
	defer dest.Close()

	if err := gif.EncodeAll(dest, out); err != nil {
		return services.Wrap(services.ErrPipeline, "resizer", "encode", destPath, err)
	}
	return dest.Close()
}

func (r *Resizer) resizeViaFFmpeg(ctx context.Context, sourcePath, destPath string, length int, isVideo bool) error {
	if r.video == nil {
		return services.Wrap(services.ErrConfiguration, "resizer", "resize", "video processor not configured", nil)
	}
	if isVideo {
		return r.video.Scale(ctx, sourcePath, destPath, length, r.videoBitrate)
	}
	return r.video.ResizeAnimation(ctx, sourcePath, destPath, length)
}

// fitToLength scales img down so its longest side equals length, preserving
// aspect ratio. Images already within the target are returned unchanged in
// size (imaging.Fit never upscales).
func fitToLength(img image.Image, length int) *image.NRGBA {
	return imaging.Fit(img, length, length, imaging.Lanczos)
}
