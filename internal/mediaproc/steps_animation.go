package mediaproc

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"photobooth/internal/config"
	"photobooth/internal/pipeline"
	"photobooth/internal/services"
)

// AnimationAssembleFrames builds the frame sequence from the merge
// definition: captured frames in capture order, predefined asset frames at
// their declared positions, with per-frame durations collected alongside.
func AnimationAssembleFrames(defs []config.AnimationMergeDefinition) pipeline.Step[AnimationContext] {
	return func(ctx *AnimationContext, next pipeline.Next[AnimationContext]) error {
		frames := make([]*image.NRGBA, 0, len(defs))
		durations := make([]int, 0, len(defs))
		captured := ctx.Images
		for _, def := range defs {
			var frame *image.NRGBA
			if def.PredefinedImage != "" {
				asset, err := loadAsset(def.PredefinedImage)
				if err != nil {
					return err
				}
				filtered, err := ApplyFilter(def.Filter, asset)
				if err != nil {
					return err
				}
				frame = filtered
			} else {
				if len(captured) == 0 {
					return services.Wrap(services.ErrPipeline, "mediaproc", "animation_frames",
						"not enough captured images for merge definition", nil)
				}
				frame = captured[0]
				captured = captured[1:]
			}
			frames = append(frames, frame)
			durations = append(durations, def.DurationMillis)
		}
		if len(captured) != 0 {
			return services.Wrap(services.ErrPipeline, "mediaproc", "animation_frames",
				fmt.Sprintf("%d captured images left over after filling merge definition", len(captured)), nil)
		}
		ctx.Images = frames
		ctx.Durations = durations
		return next(ctx)
	}
}

// AlignSizes covers every frame to the canvas dimensions so the animation
// has uniform geometry.
func AlignSizes(width, height int) pipeline.Step[AnimationContext] {
	return func(ctx *AnimationContext, next pipeline.Next[AnimationContext]) error {
		if width <= 0 || height <= 0 {
			return services.Wrap(services.ErrPipeline, "mediaproc", "align_sizes", "canvas dimensions missing", nil)
		}
		for i, frame := range ctx.Images {
			ctx.Images[i] = imaging.Fill(frame, width, height, imaging.Center, imaging.Lanczos)
		}
		return next(ctx)
	}
}
