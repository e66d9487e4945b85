package capture

import (
	"image"
	"time"
)

// Geometry is a window client rectangle in screen coordinates.
type Geometry struct {
	X, Y          int
	Width, Height int
}

// Rect returns the geometry as a screen rectangle.
func (g Geometry) Rect() image.Rectangle {
	return image.Rect(g.X, g.Y, g.X+g.Width, g.Y+g.Height)
}

// Empty reports whether the geometry has no area.
func (g Geometry) Empty() bool { return g.Width <= 0 || g.Height <= 0 }

// WindowLocator finds the game window. Find reports false when the window is
// absent or minimized, which is expected whenever the game is not running.
type WindowLocator interface {
	Find() (Geometry, bool)
	IsForeground() bool
}

// Grabber copies a screen rectangle into a new RGBA image.
type Grabber interface {
	Grab(r image.Rectangle) (*image.RGBA, error)
}

// FrameSource provides read-only access to the latest captured frame.
type FrameSource interface {
	LatestFrame() FrameSnapshot
	Stats() CaptureStats
}

// FrameSnapshot carries one captured frame of the game window's client area.
type FrameSnapshot struct {
	Image      *image.RGBA
	Geometry   Geometry
	CapturedAt time.Time
	Sequence   uint64
}

// CaptureStats summarises capture behaviour for instrumentation.
type CaptureStats struct {
	Captures         uint64
	Skipped          uint64
	AvgCapture       time.Duration
	AvgCaptureMicros float64
	LastCapture      time.Time
	LatestFrameAge   time.Duration
	Sequence         uint64
}
