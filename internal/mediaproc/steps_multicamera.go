package mediaproc

import (
	"encoding/json"
	"image"
	"image/draw"
	"log/slog"
	"os"

	"photobooth/internal/logging"
	"photobooth/internal/pipeline"
	"photobooth/internal/services"
)

// CalibrationFrame is one per-camera correction from the calibration file:
// a pixel offset applied before composing the wigglegram loop.
type CalibrationFrame struct {
	OffsetX int `json:"offset_x"`
	OffsetY int `json:"offset_y"`
}

// AlignAsPerCalibration applies stored per-frame offsets from a calibration
// file. Without the file the frames pass through unchanged with a warning;
// wigglegrams still compose, just without rectification.
func AlignAsPerCalibration(calibrationPath string, logger *slog.Logger) pipeline.Step[MulticameraContext] {
	return func(ctx *MulticameraContext, next pipeline.Next[MulticameraContext]) error {
		if logger == nil {
			logger = logging.NewNop()
		}
		data, err := os.ReadFile(calibrationPath)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Warn("no multicamera calibration file, frames pass through unaligned",
					logging.String("path", calibrationPath))
				return next(ctx)
			}
			return services.Wrap(services.ErrPipeline, "mediaproc", "align_calibration", calibrationPath, err)
		}

		var frames []CalibrationFrame
		if err := json.Unmarshal(data, &frames); err != nil {
			return services.Wrap(services.ErrPipeline, "mediaproc", "align_calibration", "parse "+calibrationPath, err)
		}
		if len(frames) != len(ctx.Images) {
			return services.Wrap(services.ErrPipeline, "mediaproc", "align_calibration",
				"calibration frame count does not match captured frames", nil)
		}
		for i, calibration := range frames {
			ctx.Images[i] = translateFrame(ctx.Images[i], calibration.OffsetX, calibration.OffsetY)
		}
		return next(ctx)
	}
}

func translateFrame(frame *image.NRGBA, dx, dy int) *image.NRGBA {
	if dx == 0 && dy == 0 {
		return frame
	}
	bounds := frame.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	target := bounds.Add(image.Pt(dx, dy))
	draw.Draw(out, target, frame, bounds.Min, draw.Src)
	return out
}
