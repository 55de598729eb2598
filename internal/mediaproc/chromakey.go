package mediaproc

import (
	"image"

	"photobooth/internal/pipeline"
)

// RemoveChromakey masks pixels whose hue lies within keycolor +- tolerance
// and attaches the cleaned mask as the alpha channel. The mask is opened
// (erode then dilate) to drop speckle, dilated once to close the keyed area,
// and box-blurred for soft edges. Output always carries an alpha channel.
func RemoveChromakey(keycolor, tolerance int) pipeline.Step[ImageContext] {
	return func(ctx *ImageContext, next pipeline.Next[ImageContext]) error {
		img := ctx.Image
		bounds := img.Bounds()
		width, height := bounds.Dx(), bounds.Dy()

		mask := make([]uint8, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				offset := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				h, s, v := rgbToHSV(img.Pix[offset], img.Pix[offset+1], img.Pix[offset+2])
				if s >= 0.25 && v >= 0.2 && hueWithin(h, float64(keycolor), float64(tolerance)) {
					mask[y*width+x] = 0xff
				}
			}
		}

		mask = erode3x3(mask, width, height)
		mask = dilate3x3(mask, width, height)
		mask = dilate3x3(mask, width, height)
		mask = boxBlur3x3(mask, width, height)

		out := image.NewNRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				src := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				dst := out.PixOffset(x, y)
				copy(out.Pix[dst:dst+3], img.Pix[src:src+3])
				keyed := mask[y*width+x]
				srcAlpha := img.Pix[src+3]
				alpha := 0xff - keyed
				if srcAlpha < alpha {
					alpha = srcAlpha
				}
				out.Pix[dst+3] = alpha
			}
		}
		ctx.Image = out
		return next(ctx)
	}
}

func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max := rf
	if gf > max {
		max = gf
	}
	if bf > max {
		max = bf
	}
	min := rf
	if gf < min {
		min = gf
	}
	if bf < min {
		min = bf
	}
	v = max
	delta := max - min
	if max > 0 {
		s = delta / max
	}
	if delta == 0 {
		return 0, s, v
	}
	switch max {
	case rf:
		h = 60 * ((gf - bf) / delta)
	case gf:
		h = 60 * (2 + (bf-rf)/delta)
	default:
		h = 60 * (4 + (rf-gf)/delta)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

func hueWithin(h, center, tolerance float64) bool {
	diff := h - center
	if diff < -180 {
		diff += 360
	}
	if diff > 180 {
		diff -= 360
	}
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

func erode3x3(mask []uint8, width, height int) []uint8 {
	out := make([]uint8, len(mask))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			min := uint8(0xff)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						min = 0
						continue
					}
					if v := mask[ny*width+nx]; v < min {
						min = v
					}
				}
			}
			out[y*width+x] = min
		}
	}
	return out
}

func dilate3x3(mask []uint8, width, height int) []uint8 {
	out := make([]uint8, len(mask))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			max := uint8(0)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					if v := mask[ny*width+nx]; v > max {
						max = v
					}
				}
			}
			out[y*width+x] = max
		}
	}
	return out
}

func boxBlur3x3(mask []uint8, width, height int) []uint8 {
	out := make([]uint8, len(mask))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum, count := 0, 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					sum += int(mask[ny*width+nx])
					count++
				}
			}
			out[y*width+x] = uint8(sum / count)
		}
	}
	return out
}
