package capture

import (
	"fmt"
	"image"

	"github.com/vova616/screenshot"
)

// ScreenGrabber captures screen rectangles with the screenshot library.
type ScreenGrabber struct{}

// NewScreenGrabber returns the default grabber.
func NewScreenGrabber() ScreenGrabber { return ScreenGrabber{} }

func (ScreenGrabber) Grab(r image.Rectangle) (*image.RGBA, error) {
	if r.Empty() {
		return nil, fmt.Errorf("capture: empty rect %v", r)
	}
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("capture: grab %v: %w", r, err)
	}
	return img, nil
}
