package vision

import (
	"image"

	"github.com/soocke/coop-overlay-go/config"
)

// RGBToHSV converts 8-bit RGB to HSV on the OpenCV 8-bit scale:
// H in 0..179, S and V in 0..255.
func RGBToHSV(r, g, b uint8) (h, s, v uint8) {
	mx := max(r, g, b)
	mn := min(r, g, b)
	v = mx
	if mx == 0 {
		return 0, 0, 0
	}
	diff := int(mx) - int(mn)
	s = uint8((diff*255 + int(mx)/2) / int(mx))
	if diff == 0 {
		return 0, s, v
	}
	var hue float64
	switch mx {
	case r:
		hue = 60 * float64(int(g)-int(b)) / float64(diff)
	case g:
		hue = 120 + 60*float64(int(b)-int(r))/float64(diff)
	default:
		hue = 240 + 60*float64(int(r)-int(g))/float64(diff)
	}
	if hue < 0 {
		hue += 360
	}
	hh := int(hue/2 + 0.5)
	if hh >= 180 {
		hh -= 180
	}
	return uint8(hh), s, v
}

// MaskHSV returns a binary plane where pixels inside any range of the
// profile are 255. Fully transparent pixels never match.
func MaskHSV(img image.Image, profile config.ColorProfile) *Plane {
	if img == nil {
		return NewPlane(0, 0)
	}
	b := img.Bounds()
	out := NewPlane(b.Dx(), b.Dy())
	if out.Empty() || len(profile.Ranges) == 0 {
		return out
	}
	switch src := img.(type) {
	case *image.NRGBA:
		maskPix(out, src.Pix, src.Stride, b.Min.X-src.Rect.Min.X, b.Min.Y-src.Rect.Min.Y, profile)
	case *image.RGBA:
		// Captured frames are opaque so premultiplied values equal straight values.
		maskPix(out, src.Pix, src.Stride, b.Min.X-src.Rect.Min.X, b.Min.Y-src.Rect.Min.Y, profile)
	default:
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				r, g, bb, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				if a == 0 {
					continue
				}
				h, s, v := RGBToHSV(uint8(r>>8), uint8(g>>8), uint8(bb>>8))
				if profile.Contains(h, s, v) {
					out.Pix[y*out.W+x] = 255
				}
			}
		}
	}
	return out
}

func maskPix(out *Plane, pix []uint8, stride, ox, oy int, profile config.ColorProfile) {
	for y := 0; y < out.H; y++ {
		row := pix[(y+oy)*stride:]
		for x := 0; x < out.W; x++ {
			i := (x + ox) * 4
			if row[i+3] == 0 {
				continue
			}
			h, s, v := RGBToHSV(row[i], row[i+1], row[i+2])
			if profile.Contains(h, s, v) {
				out.Pix[y*out.W+x] = 255
			}
		}
	}
}
