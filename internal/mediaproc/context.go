package mediaproc

import "image"

// ImageContext carries one image through a phase-1 pipeline. Preview lets
// expensive steps bound latency by skipping work.
type ImageContext struct {
	Image   *image.NRGBA
	Preview bool
}

// CollageContext carries a canvas plus the phase-1 processed source images
// through a collage composition pipeline.
type CollageContext struct {
	Canvas *image.NRGBA
	Images []*image.NRGBA
}

// AnimationContext carries the frame sequence of an animation composition.
// Durations holds per-frame display times in milliseconds, index-aligned
// with Images.
type AnimationContext struct {
	Images    []*image.NRGBA
	Durations []int
}

// VideoContext carries a video job through its pipeline. Steps set
// ProcessedPath when they produce a distinct render.
type VideoContext struct {
	InputPath     string
	ProcessedPath string
}

// MulticameraContext carries the simultaneously captured frames of a
// wigglegram through alignment.
type MulticameraContext struct {
	Images []*image.NRGBA
}
