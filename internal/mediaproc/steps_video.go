package mediaproc

import (
	"context"

	"photobooth/internal/pipeline"
	"photobooth/internal/services/ffmpeg"
)

// Boomerang renders the input followed by its reverse into outputPath and
// records it as the processed artifact.
func Boomerang(runCtx context.Context, video ffmpeg.Processor, bitrateKbps int, outputPath string) pipeline.Step[VideoContext] {
	return func(ctx *VideoContext, next pipeline.Next[VideoContext]) error {
		if err := video.Boomerang(runCtx, ctx.InputPath, outputPath, bitrateKbps); err != nil {
			return err
		}
		ctx.ProcessedPath = outputPath
		return next(ctx)
	}
}
