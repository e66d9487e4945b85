package vision

import (
	"errors"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ErrEmptyROI is returned when an ROI does not intersect the frame.
var ErrEmptyROI = errors.New("vision: empty roi")

// ExtractROI crops roi from frame, clamped to the frame bounds, and upscales
// the crop by factor with bicubic (Catmull-Rom) interpolation. A factor of 1
// or less returns the plain crop.
func ExtractROI(frame image.Image, roi image.Rectangle, factor float64) (*image.NRGBA, error) {
	if frame == nil {
		return nil, errors.New("vision: nil frame")
	}
	r := roi.Intersect(frame.Bounds())
	if r.Empty() {
		return nil, ErrEmptyROI
	}
	// Pixels are read here rather than in imaging's worker goroutines so a
	// panicking image surfaces in the caller.
	crop := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(crop, crop.Bounds(), frame, r.Min, draw.Src)
	if factor <= 1 {
		return crop, nil
	}
	w := int(float64(r.Dx())*factor + 0.5)
	h := int(float64(r.Dy())*factor + 0.5)
	return imaging.Resize(crop, w, h, imaging.CatmullRom), nil
}
