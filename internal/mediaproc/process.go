package mediaproc

import (
	"context"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"photobooth/internal/config"
	"photobooth/internal/fileutil"
	"photobooth/internal/logging"
	"photobooth/internal/pipeline"
	"photobooth/internal/services"
	"photobooth/internal/services/ffmpeg"
)

// Processor owns the per-kind process entry points. Phase 1 turns a captured
// file into a processed still; the compose methods build the phase-2
// aggregate artifacts.
type Processor struct {
	cfg    *config.Config
	video  ffmpeg.Processor
	logger *slog.Logger
}

// NewProcessor wires the media processor. The video processor may be nil
// when no video or boomerang actions are configured.
func NewProcessor(cfg *config.Config, video ffmpeg.Processor, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		video:  video,
		logger: logging.NewComponentLogger(logger, "mediaproc"),
	}
}

// CalibrationPath locates the multicamera calibration file under userdata.
func (p *Processor) CalibrationPath() string {
	return filepath.Join(p.cfg.Paths.UserdataDir, "multicamera_calibration.json")
}

// Phase1Image runs the per-capture pipeline over one captured file and
// writes the processed still to outputPath.
func (p *Processor) Phase1Image(ctx context.Context, sourcePath string, def config.SinglePictureDefinition, preview bool, outputPath string) error {
	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return services.Wrap(services.ErrPipeline, "mediaproc", "phase1", sourcePath, err)
	}

	steps := make([]pipeline.Step[ImageContext], 0, 7)
	if p.cfg.Mediaprocessing.RemoveChromakeyEnable {
		steps = append(steps, RemoveChromakey(
			p.cfg.Mediaprocessing.RemoveChromakeyKeycolor,
			p.cfg.Mediaprocessing.RemoveChromakeyTolerance))
	}
	steps = append(steps, Removebg(p.cfg.Mediaprocessing.RemovebgModel))
	steps = append(steps, PluginFilter(def.Filter))
	if def.FillBackgroundEnable {
		steps = append(steps, FillBackground(def.FillBackgroundColor))
	}
	if def.ImgBackgroundEnable {
		steps = append(steps, ImageMount(def.ImgBackgroundFile, false))
	}
	if def.ImgFrameEnable {
		steps = append(steps, ImageFrame(def.ImgFrameFile))
	}
	if def.TextsEnable {
		steps = append(steps, Text(def.Texts))
	}

	imageCtx := &ImageContext{Image: imaging.Clone(img), Preview: preview}
	if err := pipeline.New(steps...).Run(imageCtx); err != nil {
		return err
	}
	if err := imaging.Save(imageCtx.Image, outputPath, imaging.JPEGQuality(p.cfg.Mediaprocessing.StillQuality)); err != nil {
		return services.Wrap(services.ErrPipeline, "mediaproc", "phase1", outputPath, err)
	}
	return nil
}

// ComposeCollage merges the phase-1 processed stills onto the collage canvas
// and finishes the canvas (background, front image, texts).
func (p *Processor) ComposeCollage(ctx context.Context, sourcePaths []string, proc config.CollageProcessing, outputPath string) error {
	images, err := loadImages(sourcePaths)
	if err != nil {
		return err
	}

	collageCtx := &CollageContext{
		Canvas: image.NewNRGBA(image.Rect(0, 0, proc.CanvasWidth, proc.CanvasHeight)),
		Images: images,
	}
	merge := pipeline.New(
		AddPredefinedImages(proc.MergeDefinition),
		PostPredefinedImages(proc.MergeDefinition),
		MergeCollage(proc.MergeDefinition),
	)
	if err := merge.Run(collageCtx); err != nil {
		return err
	}

	finishing := make([]pipeline.Step[ImageContext], 0, 4)
	if proc.CanvasFillBackgroundEnable {
		finishing = append(finishing, FillBackground(proc.CanvasFillBackgroundColor))
	}
	if proc.CanvasImgBackgroundEnable {
		finishing = append(finishing, ImageMount(proc.CanvasImgBackgroundFile, false))
	}
	if proc.CanvasImgFrontEnable {
		finishing = append(finishing, ImageMount(proc.CanvasImgFrontFile, true))
	}
	if proc.CanvasTextsEnable {
		finishing = append(finishing, Text(proc.CanvasTexts))
	}
	imageCtx := &ImageContext{Image: collageCtx.Canvas}
	if err := pipeline.New(finishing...).Run(imageCtx); err != nil {
		return err
	}

	if err := imaging.Save(imageCtx.Image, outputPath, imaging.JPEGQuality(p.cfg.Mediaprocessing.StillQuality)); err != nil {
		return services.Wrap(services.ErrPipeline, "mediaproc", "compose_collage", outputPath, err)
	}
	return nil
}

// ComposeAnimation assembles the processed stills plus predefined frames
// into an animated GIF with per-frame durations, looping forever.
func (p *Processor) ComposeAnimation(ctx context.Context, sourcePaths []string, proc config.AnimationProcessing, outputPath string) error {
	images, err := loadImages(sourcePaths)
	if err != nil {
		return err
	}

	animationCtx := &AnimationContext{Images: images}
	compose := pipeline.New(
		AnimationAssembleFrames(proc.MergeDefinition),
		AlignSizes(proc.CanvasWidth, proc.CanvasHeight),
	)
	if err := compose.Run(animationCtx); err != nil {
		return err
	}
	return writeGIF(outputPath, animationCtx.Images, animationCtx.Durations)
}

// ComposeWigglegram aligns the simultaneously captured frames and writes a
// ping-pong animated loop: forward then back, interior frames not repeated.
func (p *Processor) ComposeWigglegram(ctx context.Context, sourcePaths []string, proc config.MulticameraProcessing, outputPath string) error {
	images, err := loadImages(sourcePaths)
	if err != nil {
		return err
	}

	multicamCtx := &MulticameraContext{Images: images}
	align := pipeline.New(AlignAsPerCalibration(p.CalibrationPath(), p.logger))
	if err := align.Run(multicamCtx); err != nil {
		return err
	}

	frames := pingPong(multicamCtx.Images)
	duration := proc.FrameDurationMillis
	durations := make([]int, len(frames))
	for i := range durations {
		durations[i] = duration
	}
	return writeGIF(outputPath, frames, durations)
}

// ProcessVideo produces the processed video artifact. With boomerang the
// input plays forward then in reverse; otherwise the processed file is a
// copy of the recording.
func (p *Processor) ProcessVideo(ctx context.Context, inputPath string, proc config.VideoProcessing, outputPath string) error {
	if !proc.Boomerang {
		if err := fileutil.CopyFile(inputPath, outputPath); err != nil {
			return services.Wrap(services.ErrPipeline, "mediaproc", "process_video", outputPath, err)
		}
		return nil
	}
	if p.video == nil {
		return services.Wrap(services.ErrConfiguration, "mediaproc", "process_video", "video processor not configured", nil)
	}
	videoCtx := &VideoContext{InputPath: inputPath}
	return pipeline.New(
		Boomerang(ctx, p.video, p.cfg.Mediaprocessing.VideoBitrateKbps, outputPath),
	).Run(videoCtx)
}

func loadImages(paths []string) ([]*image.NRGBA, error) {
	images := make([]*image.NRGBA, 0, len(paths))
	for _, path := range paths {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, services.Wrap(services.ErrPipeline, "mediaproc", "load", path, err)
		}
		images = append(images, imaging.Clone(img))
	}
	return images, nil
}

// pingPong appends the reversed interior frames so the loop swings back
// without repeating the endpoints.
func pingPong(frames []*image.NRGBA) []*image.NRGBA {
	if len(frames) < 3 {
		return frames
	}
	out := make([]*image.NRGBA, 0, 2*len(frames)-2)
	out = append(out, frames...)
	for i := len(frames) - 2; i >= 1; i-- {
		out = append(out, frames[i])
	}
	return out
}

func writeGIF(path string, frames []*image.NRGBA, durationsMillis []int) error {
	if len(frames) == 0 {
		return services.Wrap(services.ErrPipeline, "mediaproc", "write_gif", "no frames", nil)
	}
	out := &gif.GIF{LoopCount: 0}
	for i, frame := range frames {
		paletted := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, frame.Bounds(), frame, image.Point{})
		out.Image = append(out.Image, paletted)

		millis := 1000
		if i < len(durationsMillis) && durationsMillis[i] > 0 {
			millis = durationsMillis[i]
		}
		out.Delay = append(out.Delay, millis/10)
	}

	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrPipeline, "mediaproc", "write_gif", path, err)
	}
	defer file.Close()
	if err := gif.EncodeAll(file, out); err != nil {
		return services.Wrap(services.ErrPipeline, "mediaproc", "write_gif", path, err)
	}
	return file.Close()
}
