package templates

import (
	"image"
	"math"
	"sync"

	"github.com/soocke/coop-overlay-go/domain/vision"
)

// Template categories. Glyph pools are binary; icon pools also keep a
// grayscale plane because icons are matched on luminance.
const (
	CategoryCount   = "count"
	CategoryTime    = "time"
	CategoryPause   = "pause"
	CategoryPhrase  = "phrase"
	CategoryRace    = "race"
	CategoryMutator = "mutator"
)

// IsIcon reports whether templates of the category are icons.
func IsIcon(category string) bool {
	return category == CategoryRace || category == CategoryMutator
}

// Template is one immutable labeled image.
type Template struct {
	Key      string // semantic label, e.g. "3", "colon", "c2", "void-rifts"
	Text     string // rendered text, e.g. ":" for "colon"
	Category string
	Variant  string // color variant, "" when the template is color-agnostic
	Binary   *vision.Plane
	Gray     *vision.Plane

	mu      sync.Mutex
	kernels map[kernelKey]*vision.Kernel
}

type kernelKey struct {
	gray  bool
	scale int
}

// Width and Height of the unscaled template.
func (t *Template) Width() int  { return t.Binary.W }
func (t *Template) Height() int { return t.Binary.H }

// Kernel returns the binary template resized by scale, re-binarized and
// prepared for matching. Results are cached per scale. nil means the scaled
// template is degenerate.
func (t *Template) Kernel(scale float64) *vision.Kernel {
	return t.kernel(false, scale)
}

// GrayKernel is Kernel for the grayscale plane.
func (t *Template) GrayKernel(scale float64) *vision.Kernel {
	return t.kernel(true, scale)
}

func (t *Template) kernel(gray bool, scale float64) *vision.Kernel {
	if scale <= 0 {
		scale = 1
	}
	key := kernelKey{gray: gray, scale: int(math.Round(scale * 1000))}
	t.mu.Lock()
	defer t.mu.Unlock()
	if k, ok := t.kernels[key]; ok {
		return k
	}
	var k *vision.Kernel
	if gray {
		if t.Gray != nil {
			w := int(float64(t.Gray.W)*scale + 0.5)
			h := int(float64(t.Gray.H)*scale + 0.5)
			k = vision.NewKernel(t.Gray.Resize(w, h))
		}
	} else {
		k = vision.NewKernel(t.Binary.ScaleBinary(scale))
	}
	if t.kernels == nil {
		t.kernels = map[kernelKey]*vision.Kernel{}
	}
	t.kernels[key] = k
	return k
}

// binarize converts a decoded image into a strict binary mask. Images with
// any non-opaque pixel use the alpha plane; opaque images are thresholded on
// luminance and inverted so dark glyphs become foreground.
func binarize(img image.Image) *vision.Plane {
	b := img.Bounds()
	out := vision.NewPlane(b.Dx(), b.Dy())
	if hasAlpha(img) {
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				if a>>8 >= 128 {
					out.Set(x, y, 255)
				}
			}
		}
		return out
	}
	return vision.PlaneFromImage(img).Invert().Binarize(128)
}

// grayscale returns luminance premultiplied by alpha so transparent
// surroundings read as black.
func grayscale(img image.Image) *vision.Plane {
	b := img.Bounds()
	out := vision.NewPlane(b.Dx(), b.Dy())
	for y := 0; y < out.H; y++ {
		for x := 0; x < out.W; x++ {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// RGBA() is premultiplied, which applies the alpha for us.
			out.Set(x, y, uint8((19595*r+38470*g+7471*bb+1<<15)>>24))
		}
	}
	return out
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
