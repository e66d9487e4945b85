package session

import (
	"sync"
	"sync/atomic"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/recognition"
)

// Readings are the latest cached per-field reads.
type Readings struct {
	Count     *int
	CountText string
	Time      string
	Pause     string
}

// Session is the engine-owned state of one game session: the locked HUD
// layout, the calibrated faction color and the latest raw reads. Each group
// has its own lock. Writers pass the generation they started under; writes
// from an earlier generation are dropped so a finished session never leaks
// into the next one.
type Session struct {
	gen atomic.Uint64

	calMu  sync.RWMutex
	layout *recognition.Layout
	color  *config.ColorProfile

	readMu    sync.RWMutex
	count     *int
	countText string
	timeText  string
	pauseText string
}

// New returns a session in the unknown state.
func New() *Session { return &Session{} }

// Generation identifies the current session.
func (s *Session) Generation() uint64 { return s.gen.Load() }

// Reset returns every field to unknown and starts a new generation.
func (s *Session) Reset() uint64 {
	s.calMu.Lock()
	s.readMu.Lock()
	gen := s.gen.Add(1)
	s.layout = nil
	s.color = nil
	s.count = nil
	s.countText = ""
	s.timeText = ""
	s.pauseText = ""
	s.readMu.Unlock()
	s.calMu.Unlock()
	return gen
}

// Layout returns the locked layout.
func (s *Session) Layout() (recognition.Layout, bool) {
	s.calMu.RLock()
	defer s.calMu.RUnlock()
	if s.layout == nil {
		return recognition.Layout{}, false
	}
	return *s.layout, true
}

// LockLayout stores the layout unless gen is stale or a layout is already locked.
func (s *Session) LockLayout(gen uint64, l recognition.Layout) bool {
	s.calMu.Lock()
	defer s.calMu.Unlock()
	if gen != s.gen.Load() || s.layout != nil {
		return false
	}
	s.layout = &l
	return true
}

// Color returns the calibrated faction color.
func (s *Session) Color() (config.ColorProfile, bool) {
	s.calMu.RLock()
	defer s.calMu.RUnlock()
	if s.color == nil {
		return config.ColorProfile{}, false
	}
	return *s.color, true
}

// LockColor stores the color unless gen is stale or a color is already locked.
func (s *Session) LockColor(gen uint64, c config.ColorProfile) bool {
	s.calMu.Lock()
	defer s.calMu.Unlock()
	if gen != s.gen.Load() || s.color != nil {
		return false
	}
	s.color = &c
	return true
}

// SetCount records a count read. Only parseable reads replace the cached
// count, so a blank frame does not erase a known count.
func (s *Session) SetCount(gen uint64, text string) bool {
	n, ok := recognition.ParseCount(text)
	s.readMu.Lock()
	defer s.readMu.Unlock()
	if gen != s.gen.Load() {
		return false
	}
	if !ok {
		return true
	}
	s.count = &n
	s.countText = text
	return true
}

// SetTimePause records the latest time and pause reads, blank or not.
func (s *Session) SetTimePause(gen uint64, timeText, pauseText string) bool {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	if gen != s.gen.Load() {
		return false
	}
	s.timeText = timeText
	s.pauseText = pauseText
	return true
}

// Readings returns a copy of the cached reads.
func (s *Session) Readings() Readings {
	s.readMu.RLock()
	defer s.readMu.RUnlock()
	r := Readings{CountText: s.countText, Time: s.timeText, Pause: s.pauseText}
	if s.count != nil {
		n := *s.count
		r.Count = &n
	}
	return r
}
