package vision

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Plane is a single-channel 8-bit image stored row-major. Binary planes use
// 0 for background and 255 for foreground.
type Plane struct {
	Pix  []uint8
	W, H int
}

// NewPlane allocates a zeroed w x h plane.
func NewPlane(w, h int) *Plane {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Plane{Pix: make([]uint8, w*h), W: w, H: h}
}

// Empty reports whether the plane has no pixels.
func (p *Plane) Empty() bool { return p == nil || p.W == 0 || p.H == 0 }

// At returns the value at (x, y).
func (p *Plane) At(x, y int) uint8 { return p.Pix[y*p.W+x] }

// Set writes the value at (x, y).
func (p *Plane) Set(x, y int, v uint8) { p.Pix[y*p.W+x] = v }

// CountNonZero returns the number of non-zero pixels.
func (p *Plane) CountNonZero() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, v := range p.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Binarize returns a new plane where values >= threshold become 255.
func (p *Plane) Binarize(threshold uint8) *Plane {
	out := NewPlane(p.W, p.H)
	for i, v := range p.Pix {
		if v >= threshold {
			out.Pix[i] = 255
		}
	}
	return out
}

// Invert returns the photographic negative of the plane.
func (p *Plane) Invert() *Plane {
	out := NewPlane(p.W, p.H)
	for i, v := range p.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// Image exposes the plane as an *image.Gray sharing no memory with p.
func (p *Plane) Image() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, p.W, p.H))
	copy(g.Pix, p.Pix)
	return g
}

// Resize scales the plane to w x h with linear filtering. Binary callers
// should re-binarize the result.
func (p *Plane) Resize(w, h int) *Plane {
	if w <= 0 || h <= 0 || p.Empty() {
		return NewPlane(0, 0)
	}
	if w == p.W && h == p.H {
		out := NewPlane(w, h)
		copy(out.Pix, p.Pix)
		return out
	}
	return PlaneFromImage(imaging.Resize(p.Image(), w, h, imaging.Linear))
}

// ScaleBinary resizes a binary plane by factor and re-binarizes it so
// interpolation does not leave gray fringes.
func (p *Plane) ScaleBinary(factor float64) *Plane {
	w := int(float64(p.W)*factor + 0.5)
	h := int(float64(p.H)*factor + 0.5)
	return p.Resize(w, h).Binarize(128)
}

// PlaneFromImage converts any image to a luminance plane.
func PlaneFromImage(img image.Image) *Plane {
	b := img.Bounds()
	out := NewPlane(b.Dx(), b.Dy())
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < out.H; y++ {
			off := (y+b.Min.Y-src.Rect.Min.Y)*src.Stride + (b.Min.X - src.Rect.Min.X)
			copy(out.Pix[y*out.W:(y+1)*out.W], src.Pix[off:off+out.W])
		}
	case *image.NRGBA:
		for y := 0; y < out.H; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride:]
			for x := 0; x < out.W; x++ {
				i := (x + b.Min.X - src.Rect.Min.X) * 4
				out.Pix[y*out.W+x] = luma(row[i], row[i+1], row[i+2])
			}
		}
	default:
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				out.Pix[y*out.W+x] = g.Y
			}
		}
	}
	return out
}

func luma(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}
