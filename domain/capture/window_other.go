//go:build !windows

package capture

import "github.com/vova616/screenshot"

// screenLocator treats the primary screen as the game window. Window lookup by
// title is only available on Windows.
type screenLocator struct{}

// NewWindowLocator returns a locator covering the whole primary screen.
func NewWindowLocator(string) WindowLocator { return screenLocator{} }

func (screenLocator) Find() (Geometry, bool) {
	r, err := screenshot.ScreenRect()
	if err != nil || r.Empty() {
		return Geometry{}, false
	}
	return Geometry{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}, true
}

func (screenLocator) IsForeground() bool { return true }
