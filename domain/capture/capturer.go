package capture

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// StatsLogInterval is how often callers should log capture statistics.
const StatsLogInterval = 5 * time.Second

// Capturer grabs frames of the located window on demand and keeps the latest
// snapshot alongside instrumentation counters.
type Capturer struct {
	grabber      Grabber
	logger       *slog.Logger
	latest       atomic.Pointer[FrameSnapshot]
	captures     atomic.Uint64
	skipped      atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64
}

// NewCapturer constructs a capturer. A nil grabber uses the screen grabber.
func NewCapturer(grabber Grabber, logger *slog.Logger) *Capturer {
	if grabber == nil {
		grabber = NewScreenGrabber()
	}
	return &Capturer{grabber: grabber, logger: logger}
}

// Capture grabs the window's client area. A failed grab is counted as
// skipped and returned to the caller, which treats it as transient.
func (c *Capturer) Capture(g Geometry) (FrameSnapshot, error) {
	if g.Empty() {
		c.skipped.Add(1)
		return FrameSnapshot{}, errors.New("capture: empty window geometry")
	}
	start := time.Now()
	img, err := c.grabber.Grab(g.Rect())
	if err != nil || img == nil {
		c.skipped.Add(1)
		if err == nil {
			err = errors.New("capture: grabber returned no image")
		}
		return FrameSnapshot{}, err
	}
	c.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
	c.captures.Add(1)
	snap := FrameSnapshot{Image: img, Geometry: g, CapturedAt: time.Now(), Sequence: c.sequence.Add(1)}
	c.latest.Store(&snap)
	return snap, nil
}

func (c *Capturer) LatestFrame() FrameSnapshot {
	snap := c.latest.Load()
	if snap == nil {
		return FrameSnapshot{}
	}
	return *snap
}

func (c *Capturer) Stats() CaptureStats {
	captures := c.captures.Load()
	total := c.captureNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	snapshot := c.LatestFrame()
	age := time.Duration(0)
	if !snapshot.CapturedAt.IsZero() {
		age = time.Since(snapshot.CapturedAt)
	}
	return CaptureStats{
		Captures:         captures,
		Skipped:          c.skipped.Load(),
		AvgCapture:       avg,
		AvgCaptureMicros: avgMicros,
		LastCapture:      snapshot.CapturedAt,
		LatestFrameAge:   age,
		Sequence:         snapshot.Sequence,
	}
}

// LogStats writes the current statistics at debug level.
func (c *Capturer) LogStats() {
	if c.logger == nil {
		return
	}
	stats := c.Stats()
	c.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"skipped", stats.Skipped,
		"avg_capture", stats.AvgCapture,
		"age", stats.LatestFrameAge,
	)
}

var _ FrameSource = (*Capturer)(nil)
