package mediaproc

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"photobooth/internal/config"
	"photobooth/internal/pipeline"
	"photobooth/internal/services"
)

// Text renders each configured overlay at its position with rotation, font,
// size, and color. The placeholders {date} and {time} are substituted with
// current values. An entry without a font file renders with a builtin
// bitmap face; a font path that cannot be loaded is a pipeline error.
func Text(texts []config.TextConfig) pipeline.Step[ImageContext] {
	return func(ctx *ImageContext, next pipeline.Next[ImageContext]) error {
		now := time.Now()
		for _, entry := range texts {
			content := substitutePlaceholders(entry.Text, now)
			if strings.TrimSpace(content) == "" {
				continue
			}
			col, err := parseHexColor(entry.Color)
			if err != nil {
				return services.Wrap(services.ErrPipeline, "mediaproc", "text", entry.Color, err)
			}
			face, closeFace, err := loadFace(entry.Font, entry.FontSize)
			if err != nil {
				return err
			}
			layer := renderTextLayer(content, face, col)
			closeFace()
			if entry.Rotate != 0 {
				layer = imaging.Rotate(layer, float64(entry.Rotate), color.NRGBA{})
			}
			target := image.Rect(entry.PosX, entry.PosY,
				entry.PosX+layer.Bounds().Dx(), entry.PosY+layer.Bounds().Dy())
			draw.Draw(ctx.Image, target, layer, image.Point{}, draw.Over)
		}
		return next(ctx)
	}
}

func substitutePlaceholders(text string, now time.Time) string {
	text = strings.ReplaceAll(text, "{date}", now.Format("2006-01-02"))
	text = strings.ReplaceAll(text, "{time}", now.Format("15:04"))
	return text
}

func loadFace(fontPath string, size int) (font.Face, func(), error) {
	if fontPath == "" {
		return basicfont.Face7x13, func() {}, nil
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrPipeline, "mediaproc", "text", "font "+fontPath, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrPipeline, "mediaproc", "text", "parse font "+fontPath, err)
	}
	if size <= 0 {
		size = 40
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, nil, services.Wrap(services.ErrPipeline, "mediaproc", "text", "build face "+fontPath, err)
	}
	return face, func() { _ = face.Close() }, nil
}

// renderTextLayer draws content onto a tight transparent layer so rotation
// and placement operate on the text alone.
func renderTextLayer(content string, face font.Face, col color.NRGBA) *image.NRGBA {
	metrics := face.Metrics()
	width := font.MeasureString(face, content).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	layer := image.NewNRGBA(image.Rect(0, 0, width, height))
	drawer := font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	drawer.DrawString(content)
	return layer
}
