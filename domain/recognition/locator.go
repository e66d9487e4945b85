package recognition

import (
	"image"
	"log/slog"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/vision"
)

// Scale maps baseline-resolution coordinates onto a captured frame.
type Scale struct {
	X, Y float64
}

// ScaleFor derives the frame scale from the configured baseline resolution.
// Templates follow the vertical ratio since the HUD scales with height.
func ScaleFor(cfg *config.Config, frame image.Rectangle) Scale {
	return Scale{
		X: float64(frame.Dx()) / float64(cfg.BaselineWidth),
		Y: float64(frame.Dy()) / float64(cfg.BaselineHeight),
	}
}

// Rect maps a baseline ROI onto the frame.
func (s Scale) Rect(r config.Rect) image.Rectangle { return r.Scale(s.X, s.Y) }

// Layout is the set of HUD regions locked for a session.
type Layout struct {
	Index  int // position in the configured offset list
	Offset int // vertical shift in baseline pixels
	Count  image.Rectangle
	Time   image.Rectangle
	Pause  image.Rectangle
}

// RegionLocator finds which UI offset state the HUD is in by probing the
// count ROI at each candidate offset for any known faction color.
type RegionLocator struct {
	base      config.Rect
	time      config.Rect
	pause     config.Rect
	offsets   []int
	any       config.ColorProfile
	minPixels int
	logger    *slog.Logger
}

// NewRegionLocator builds a locator from the configured ROIs and palette.
func NewRegionLocator(cfg *config.Config, logger *slog.Logger) *RegionLocator {
	return &RegionLocator{
		base:      cfg.CountROI,
		time:      cfg.TimeROI,
		pause:     cfg.PauseROI,
		offsets:   append([]int(nil), cfg.LayoutOffsets...),
		any:       cfg.AnyFaction(),
		minPixels: cfg.LocatorMinPixels,
		logger:    logger,
	}
}

// Probe returns the first offset, in configured order, whose count ROI holds
// more than the minimum number of faction-colored pixels. ok is false when
// no offset qualifies yet.
func (l *RegionLocator) Probe(frame image.Image, scale Scale) (Layout, bool) {
	if frame == nil {
		return Layout{}, false
	}
	for i, dy := range l.offsets {
		countROI := scale.Rect(l.base.Shift(dy))
		crop, err := vision.ExtractROI(frame, countROI, 1)
		if err != nil {
			continue
		}
		n := vision.MaskHSV(crop, l.any).CountNonZero()
		if n <= l.minPixels {
			continue
		}
		layout := Layout{
			Index:  i,
			Offset: dy,
			Count:  countROI,
			Time:   scale.Rect(l.time.Shift(dy)),
			Pause:  scale.Rect(l.pause.Shift(dy)),
		}
		if l.logger != nil {
			l.logger.Debug("layout probe matched", "index", i, "offset", dy, "pixels", n)
		}
		return layout, true
	}
	return Layout{}, false
}
