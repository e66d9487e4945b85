package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/notify"
	"github.com/soocke/coop-overlay-go/domain/recognition"
)

// Result is the merged count/time state consumed by the overlay.
type Result struct {
	Count     *int
	Time      string // "M:SS", recognition.PausedKeyword or ""
	ChangedAt time.Time
}

// Same reports whether r and o carry the same count and time.
func (r Result) Same(o Result) bool {
	if (r.Count == nil) != (o.Count == nil) {
		return false
	}
	if r.Count != nil && *r.Count != *o.Count {
		return false
	}
	return r.Time == o.Time
}

// Alerter is notified whenever the published result changes.
type Alerter interface {
	Alert(Result)
}

// Aggregator merges the independently cached count, time and pause reads
// into one Result. It rejects out-of-range and increasing countdowns, patches
// the known 2->8/9 misread, compensates capture latency, and holds a good
// countdown over single-frame misses.
type Aggregator struct {
	maxMinutes    int
	holdOver      int
	holdOverMax   time.Duration
	latency       int
	confusableFix bool

	pub    *notify.Publisher[Result]
	alert  Alerter
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	last       Result
	history    map[int]int // count -> last accepted remaining seconds
	lastCount  *int
	sub        substitution
	lastTimeAt time.Time
}

type substitution struct {
	active   bool
	from, to int
}

// NewAggregator constructs an aggregator publishing to pub. alert may be nil.
func NewAggregator(cfg *config.Config, pub *notify.Publisher[Result], alert Alerter, logger *slog.Logger) *Aggregator {
	if pub == nil {
		pub = notify.NewPublisher[Result](notify.DefaultBuffer)
	}
	return &Aggregator{
		maxMinutes:    cfg.MaxMinutes,
		holdOver:      cfg.HoldOverSeconds,
		holdOverMax:   cfg.HoldOverMax(),
		latency:       cfg.LatencyCompensationSeconds,
		confusableFix: cfg.ConfusableCorrection,
		pub:           pub,
		alert:         alert,
		logger:        logger,
		now:           time.Now,
		history:       map[int]int{},
	}
}

// Publisher exposes the result stream.
func (a *Aggregator) Publisher() *notify.Publisher[Result] { return a.pub }

// Latest returns the last published result.
func (a *Aggregator) Latest() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Update merges the latest cached reads and publishes the result if it
// changed. count is nil when no count has been read this session.
func (a *Aggregator) Update(count *int, timeText string, paused bool) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()

	count = a.correct(count)
	next := Result{Count: count}
	if count != nil && timeText != "" {
		if secs, ok := a.acceptTime(*count, timeText); ok {
			next.Time = recognition.FormatTime(max(secs-a.latency, 0))
			a.lastTimeAt = now
		}
	}
	if next.Time == "" && paused {
		next.Time = recognition.PausedKeyword
	}
	if count != nil {
		c := *count
		a.lastCount = &c
	}
	if next.Time == "" && a.holdOverActive(now) {
		return a.last
	}
	if next.Same(a.last) {
		return a.last
	}
	next.ChangedAt = now
	a.publish(next)
	return next
}

// Reset forgets all session history and publishes an empty result.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = map[int]int{}
	a.lastCount = nil
	a.sub = substitution{}
	a.lastTimeAt = time.Time{}
	if a.last.Same(Result{}) {
		return
	}
	a.publish(Result{ChangedAt: a.now()})
}

func (a *Aggregator) publish(r Result) {
	a.last = r
	a.pub.Publish(r)
	if a.alert != nil {
		a.alert.Alert(r)
	}
}

// correct rewrites a raw 8 or 9 read right after an accepted 2 to 3. The
// substitution sticks while the same raw value keeps coming back.
func (a *Aggregator) correct(count *int) *int {
	if count == nil || !a.confusableFix {
		return count
	}
	raw := *count
	if a.sub.active && raw == a.sub.from {
		to := a.sub.to
		return &to
	}
	a.sub = substitution{}
	if a.lastCount != nil && *a.lastCount == 2 && (raw == 8 || raw == 9) {
		a.sub = substitution{active: true, from: raw, to: 3}
		if a.logger != nil {
			a.logger.Debug("count corrected", "raw", raw, "corrected", 3)
		}
		to := 3
		return &to
	}
	return count
}

// acceptTime validates the time read and enforces a non-increasing
// countdown per count. It returns the remaining seconds.
func (a *Aggregator) acceptTime(count int, text string) (int, bool) {
	m, s, err := recognition.ParseTime(text)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("time read discarded", "text", text, "error", err)
		}
		return 0, false
	}
	if m > a.maxMinutes || s > 59 {
		if a.logger != nil {
			a.logger.Warn("time read out of range", "text", text, "max_minutes", a.maxMinutes)
		}
		return 0, false
	}
	secs := m*60 + s
	if prev, ok := a.history[count]; ok && secs > prev {
		if a.logger != nil {
			a.logger.Debug("time read increased; rejected", "count", count, "text", text, "previous", recognition.FormatTime(prev))
		}
		return 0, false
	}
	a.history[count] = secs
	return secs, true
}

func (a *Aggregator) holdOverActive(now time.Time) bool {
	if a.last.Time == "" || a.last.Time == recognition.PausedKeyword {
		return false
	}
	m, s, err := recognition.ParseTime(a.last.Time)
	if err != nil || m*60+s <= a.holdOver {
		return false
	}
	return a.holdOverMax <= 0 || now.Sub(a.lastTimeAt) <= a.holdOverMax
}
