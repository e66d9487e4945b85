//go:build windows

package capture

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW         = user32.NewProc("FindWindowW")
	procGetClientRect       = user32.NewProc("GetClientRect")
	procClientToScreen      = user32.NewProc("ClientToScreen")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procIsIconic            = user32.NewProc("IsIconic")
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

type winPoint struct {
	X, Y int32
}

// titleLocator finds a top-level window by exact title.
type titleLocator struct {
	title *uint16
}

// NewWindowLocator returns a locator for the top-level window with the given
// title. A title that cannot be encoded yields a locator that never finds it.
func NewWindowLocator(title string) WindowLocator {
	p, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return titleLocator{}
	}
	return titleLocator{title: p}
}

func (l titleLocator) hwnd() uintptr {
	if l.title == nil {
		return 0
	}
	h, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(l.title)))
	return h
}

func (l titleLocator) Find() (Geometry, bool) {
	h := l.hwnd()
	if h == 0 {
		return Geometry{}, false
	}
	if minimized, _, _ := procIsIconic.Call(h); minimized != 0 {
		return Geometry{}, false
	}
	var rc winRect
	if r, _, _ := procGetClientRect.Call(h, uintptr(unsafe.Pointer(&rc))); r == 0 {
		return Geometry{}, false
	}
	var origin winPoint
	if r, _, _ := procClientToScreen.Call(h, uintptr(unsafe.Pointer(&origin))); r == 0 {
		return Geometry{}, false
	}
	g := Geometry{
		X:      int(origin.X),
		Y:      int(origin.Y),
		Width:  int(rc.Right - rc.Left),
		Height: int(rc.Bottom - rc.Top),
	}
	if g.Empty() {
		return Geometry{}, false
	}
	return g, true
}

func (l titleLocator) IsForeground() bool {
	h := l.hwnd()
	if h == 0 {
		return false
	}
	fg, _, _ := procGetForegroundWindow.Call()
	return fg == h
}
