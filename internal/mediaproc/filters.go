package mediaproc

import (
	"image"
	"image/color"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"photobooth/internal/services"
)

// filterFunc transforms the RGB channels of an image. Alpha handling is done
// by the caller: the original alpha channel is re-merged after the filter.
type filterFunc func(*image.NRGBA) *image.NRGBA

var filterRegistry = map[string]filterFunc{
	"original": func(img *image.NRGBA) *image.NRGBA { return img },
	"grayscale": func(img *image.NRGBA) *image.NRGBA {
		return imaging.Grayscale(img)
	},
	"sepia": func(img *image.NRGBA) *image.NRGBA {
		gray := imaging.Grayscale(img)
		return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
			return color.NRGBA{
				R: clampByte(int(c.R) + 40),
				G: clampByte(int(c.G) + 20),
				B: clampByte(int(c.B) - 20),
				A: c.A,
			}
		})
	},
	"warm": func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			return color.NRGBA{
				R: clampByte(int(c.R) + 18),
				G: c.G,
				B: clampByte(int(c.B) - 18),
				A: c.A,
			}
		})
	},
	"cool": func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			return color.NRGBA{
				R: clampByte(int(c.R) - 14),
				G: c.G,
				B: clampByte(int(c.B) + 18),
				A: c.A,
			}
		})
	},
	"vivid": func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustContrast(imaging.AdjustSaturation(img, 35), 10)
	},
	"soft": func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustBrightness(imaging.AdjustContrast(img, -15), 8)
	},
}

// FilterNames lists the registered filters in sorted order.
func FilterNames() []string {
	names := make([]string, 0, len(filterRegistry))
	for name := range filterRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyFilter runs the named filter over img. If the input carries
// transparency, the filter sees the RGB channels and the original alpha is
// re-merged afterwards. Unknown names are a pipeline error.
func ApplyFilter(name string, img *image.NRGBA) (*image.NRGBA, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "original"
	}
	fn, ok := filterRegistry[name]
	if !ok {
		return nil, services.Wrap(services.ErrPipeline, "mediaproc", "filter", "unknown filter "+name, nil)
	}
	filtered := fn(img)
	if filtered != img && hasTransparency(img) {
		remergeAlpha(filtered, img)
	}
	return filtered, nil
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func hasTransparency(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return true
		}
	}
	return false
}

// remergeAlpha copies the alpha channel of src onto dst. Both images must
// share dimensions, which holds for every registered filter.
func remergeAlpha(dst, src *image.NRGBA) {
	if len(dst.Pix) != len(src.Pix) {
		return
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = src.Pix[i]
	}
}
