package mediaproc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"photobooth/internal/config"
	"photobooth/internal/pipeline"
	"photobooth/internal/services"
)

// AddPredefinedImages builds the final slot list: captured images fill the
// capture slots in order, asset images fill the slots declaring a
// predefined_image path. The captured count must match the capture slots.
func AddPredefinedImages(defs []config.CollageMergeDefinition) pipeline.Step[CollageContext] {
	return func(ctx *CollageContext, next pipeline.Next[CollageContext]) error {
		slots := make([]*image.NRGBA, 0, len(defs))
		captured := ctx.Images
		for _, def := range defs {
			if def.PredefinedImage != "" {
				asset, err := loadAsset(def.PredefinedImage)
				if err != nil {
					return err
				}
				slots = append(slots, asset)
				continue
			}
			if len(captured) == 0 {
				return services.Wrap(services.ErrPipeline, "mediaproc", "add_predefined",
					"not enough captured images for merge definition", nil)
			}
			slots = append(slots, captured[0])
			captured = captured[1:]
		}
		if len(captured) != 0 {
			return services.Wrap(services.ErrPipeline, "mediaproc", "add_predefined",
				fmt.Sprintf("%d captured images left over after filling merge definition", len(captured)), nil)
		}
		ctx.Images = slots
		return next(ctx)
	}
}

// PostPredefinedImages re-applies the per-slot filter to predefined slots.
// Captured slots were already filtered during phase 1.
func PostPredefinedImages(defs []config.CollageMergeDefinition) pipeline.Step[CollageContext] {
	return func(ctx *CollageContext, next pipeline.Next[CollageContext]) error {
		if len(ctx.Images) != len(defs) {
			return services.Wrap(services.ErrPipeline, "mediaproc", "post_predefined",
				"image count does not match merge definition", nil)
		}
		for i, def := range defs {
			if def.PredefinedImage == "" {
				continue
			}
			filtered, err := ApplyFilter(def.Filter, ctx.Images[i])
			if err != nil {
				return err
			}
			ctx.Images[i] = filtered
		}
		return next(ctx)
	}
}

// MergeCollage pastes each slot image onto the canvas: fit-cover to the
// slot's dimensions, rotate, and place at the slot position adjusted for the
// rotation's bounds expansion. Slot order defines the z-order.
func MergeCollage(defs []config.CollageMergeDefinition) pipeline.Step[CollageContext] {
	return func(ctx *CollageContext, next pipeline.Next[CollageContext]) error {
		if ctx.Canvas == nil {
			return services.Wrap(services.ErrPipeline, "mediaproc", "merge_collage", "canvas missing", nil)
		}
		if len(ctx.Images) != len(defs) {
			return services.Wrap(services.ErrPipeline, "mediaproc", "merge_collage",
				fmt.Sprintf("%d images for %d merge slots", len(ctx.Images), len(defs)), nil)
		}
		for i, def := range defs {
			if def.Width <= 0 || def.Height <= 0 {
				return services.Wrap(services.ErrPipeline, "mediaproc", "merge_collage",
					fmt.Sprintf("slot %d has no dimensions", i), nil)
			}
			fitted := imaging.Fill(ctx.Images[i], def.Width, def.Height, imaging.Center, imaging.Lanczos)
			placed := fitted
			posX, posY := def.PosX, def.PosY
			if def.Rotate != 0 {
				placed = imaging.Rotate(fitted, float64(def.Rotate), color.NRGBA{})
				posX -= (placed.Bounds().Dx() - def.Width) / 2
				posY -= (placed.Bounds().Dy() - def.Height) / 2
			}
			target := image.Rect(posX, posY, posX+placed.Bounds().Dx(), posY+placed.Bounds().Dy())
			draw.Draw(ctx.Canvas, target, placed, image.Point{}, draw.Over)
		}
		return next(ctx)
	}
}
