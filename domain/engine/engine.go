package engine

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/capture"
	"github.com/soocke/coop-overlay-go/domain/icons"
	"github.com/soocke/coop-overlay-go/domain/notify"
	"github.com/soocke/coop-overlay-go/domain/recognition"
	"github.com/soocke/coop-overlay-go/domain/session"
	"github.com/soocke/coop-overlay-go/domain/templates"
	"github.com/soocke/coop-overlay-go/domain/timer"
)

// ErrAlreadyRunning is returned by Start on a running engine.
var ErrAlreadyRunning = errors.New("engine: already running")

// Deps are the engine's collaborators. Nil fields get platform defaults.
type Deps struct {
	Windows    capture.WindowLocator
	Grabber    capture.Grabber
	Library    *templates.Library
	Recognizer recognition.Recognizer
	Alerter    timer.Alerter
	Session    *session.Session
}

// Stats summarises scheduler behaviour for instrumentation.
type Stats struct {
	Iterations uint64
	Dispatched uint64
	Dropped    uint64
	Panics     uint64
	Resets     uint64
	Capture    capture.CaptureStats
}

// Engine runs the polling loop: locate the window, capture a frame, lock the
// HUD layout and faction color once per session, and dispatch count,
// time/pause and icon reads to a bounded worker pool at their own cadences.
// The merged result is republished every iteration from the cached reads.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	windows    capture.WindowLocator
	capturer   *capture.Capturer
	recognizer recognition.Recognizer
	locator    *recognition.RegionLocator
	calibrator *recognition.ColorCalibrator
	session    *session.Session
	aggregator *timer.Aggregator
	icons      *icons.Recognizer
	pool       *semaphore.Weighted

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}

	countBusy atomic.Bool
	timeBusy  atomic.Bool
	iconBusy  atomic.Bool
	tasks     sync.WaitGroup

	// loop goroutine only
	windowSeen bool
	geometry   capture.Geometry
	lastCount  time.Time
	lastTime   time.Time
	lastIcon   time.Time

	iterations atomic.Uint64
	dispatched atomic.Uint64
	dropped    atomic.Uint64
	panics     atomic.Uint64
	resets     atomic.Uint64
}

// New wires an engine. The config is validated; an invalid palette is the
// only fatal condition.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Windows == nil {
		deps.Windows = capture.NewWindowLocator(cfg.WindowTitle)
	}
	if deps.Library == nil {
		deps.Library = templates.NewLibrary()
	}
	if deps.Recognizer == nil {
		deps.Recognizer = recognition.NewGlyphMatcher(deps.Library, cfg, logger)
	}
	if deps.Session == nil {
		deps.Session = session.New()
	}
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		windows:    deps.Windows,
		capturer:   capture.NewCapturer(deps.Grabber, logger),
		recognizer: deps.Recognizer,
		locator:    recognition.NewRegionLocator(cfg, logger),
		calibrator: recognition.NewColorCalibrator(cfg, deps.Library, logger),
		session:    deps.Session,
		aggregator: timer.NewAggregator(cfg, nil, deps.Alerter, logger),
		icons:      icons.NewRecognizer(cfg, deps.Library, nil, logger),
		pool:       semaphore.NewWeighted(int64(cfg.WorkerPoolSize)),
	}, nil
}

// Results is the merged count/time stream.
func (e *Engine) Results() *notify.Publisher[timer.Result] { return e.aggregator.Publisher() }

// Latest returns the last published result.
func (e *Engine) Latest() timer.Result { return e.aggregator.Latest() }

// Icons is the race/mutator transition stream.
func (e *Engine) Icons() *notify.Publisher[icons.Event] { return e.icons.Publisher() }

// Session exposes the engine-owned session state.
func (e *Engine) Session() *session.Session { return e.session }

func (e *Engine) Running() bool { return e.running.Load() }

// Start launches the loop. It returns ErrAlreadyRunning if called twice.
// After a Stop it first waits for the previous loop to exit.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if e.done != nil {
		<-e.done
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.loop(ctx, e.done)
	e.logger.Info("engine started", "window", e.cfg.WindowTitle, "workers", e.cfg.WorkerPoolSize)
	return nil
}

// Stop ends the loop without waiting for in-flight reads; their writes land
// in a session nobody reads or are dropped by the next reset.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.cancel()
	e.logger.Info("engine stopped")
}

// Done is closed when the loop goroutine of the last Start exits.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return e.done
}

func (e *Engine) Stats() Stats {
	return Stats{
		Iterations: e.iterations.Load(),
		Dispatched: e.dispatched.Load(),
		Dropped:    e.dropped.Load(),
		Panics:     e.panics.Load(),
		Resets:     e.resets.Load(),
		Capture:    e.capturer.Stats(),
	}
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	logTicker := time.NewTicker(capture.StatsLogInterval)
	defer logTicker.Stop()
	for e.running.Load() {
		start := time.Now()
		budget := e.cfg.Iteration()
		if !e.step(start) {
			budget = e.cfg.WindowRetry()
		}
		select {
		case <-logTicker.C:
			e.logStats()
		default:
		}
		wait := budget - time.Since(start)
		if wait <= 0 {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// step runs one iteration and reports whether the game window was found.
func (e *Engine) step(now time.Time) bool {
	defer e.recoverStage("step")
	e.iterations.Add(1)

	geo, ok := e.windows.Find()
	if !ok {
		if e.windowSeen {
			e.windowSeen = false
			e.resetSession("window lost")
		}
		e.logger.Debug("window not found", "title", e.cfg.WindowTitle)
		return false
	}
	if e.windowSeen && geo != e.geometry {
		e.resetSession("window geometry changed")
	}
	e.windowSeen, e.geometry = true, geo

	if e.cfg.ForegroundOnly && !e.windows.IsForeground() {
		return true
	}
	snap, err := e.capturer.Capture(geo)
	if err != nil {
		e.logger.Debug("capture skipped", "error", err)
		return true
	}
	frame := snap.Image
	scale := recognition.ScaleFor(e.cfg, frame.Bounds())
	gen := e.session.Generation()

	if !e.icons.Done() && due(now, e.lastIcon, e.icons.Interval()) {
		if e.dispatch("icons", &e.iconBusy, func() {
			if e.session.Generation() == gen {
				e.icons.Scan(frame, scale)
			}
		}) {
			e.lastIcon = now
		}
	}

	layout, ok := e.session.Layout()
	if !ok {
		layout, ok = e.locator.Probe(frame, scale)
		if !ok {
			return true
		}
		if e.session.LockLayout(gen, layout) {
			e.icons.BeginMatch()
			e.logger.Info("layout locked", "offset_index", layout.Index, "offset", layout.Offset)
		}
	}

	if due(now, e.lastCount, e.cfg.CountInterval()) {
		if e.dispatch("count", &e.countBusy, func() { e.readCount(gen, frame, layout, scale) }) {
			e.lastCount = now
		}
	}
	if due(now, e.lastTime, e.cfg.TimeInterval()) {
		if e.dispatch("time", &e.timeBusy, func() { e.readTimePause(gen, frame, layout, scale) }) {
			e.lastTime = now
		}
	}
	e.aggregate()
	return true
}

func due(now, last time.Time, interval time.Duration) bool {
	return last.IsZero() || now.Sub(last) >= interval
}

// dispatch runs fn on the worker pool unless the same task is still in
// flight or the pool is saturated. It never blocks.
func (e *Engine) dispatch(name string, busy *atomic.Bool, fn func()) bool {
	if !busy.CompareAndSwap(false, true) {
		return false
	}
	if !e.pool.TryAcquire(1) {
		busy.Store(false)
		e.dropped.Add(1)
		return false
	}
	e.dispatched.Add(1)
	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		defer e.pool.Release(1)
		defer busy.Store(false)
		defer e.recoverStage(name)
		fn()
	}()
	return true
}

func (e *Engine) recoverStage(name string) {
	if r := recover(); r != nil {
		e.panics.Add(1)
		e.logger.Error("recognition stage panic", "stage", name, "error", r, "stack", string(debug.Stack()))
	}
}

func (e *Engine) request(frame image.Image, roi image.Rectangle, color config.ColorProfile, category, variant string, scale recognition.Scale) recognition.Request {
	return recognition.Request{
		Frame:     frame,
		ROI:       roi,
		Color:     color,
		Category:  category,
		Variant:   variant,
		Scale:     scale.Y,
		OCRScale:  e.cfg.OCRScale,
		Threshold: e.cfg.MatchThreshold,
	}
}

func (e *Engine) readCount(gen uint64, frame image.Image, layout recognition.Layout, scale recognition.Scale) {
	color, ok := e.session.Color()
	if !ok {
		color, ok = e.calibrator.Calibrate(frame, layout.Count, scale.Y)
		if !ok {
			return
		}
		if !e.session.LockColor(gen, color) {
			if color, ok = e.session.Color(); !ok || e.session.Generation() != gen {
				return
			}
		}
	}
	text := e.recognizer.Recognize(e.request(frame, layout.Count, color, templates.CategoryCount, color.Name, scale))
	if text != "" {
		if _, ok := recognition.ParseCount(text); !ok {
			e.logger.Warn("count read discarded", "text", text)
		}
	}
	e.session.SetCount(gen, text)
}

func (e *Engine) readTimePause(gen uint64, frame image.Image, layout recognition.Layout, scale recognition.Scale) {
	timeText := e.recognizer.Recognize(e.request(frame, layout.Time, e.cfg.TimeColor, templates.CategoryTime, "", scale))
	pauseText := ""
	if _, _, err := recognition.ParseTime(timeText); err != nil {
		pauseText = e.recognizer.Recognize(e.request(frame, layout.Pause, e.cfg.PauseColor, templates.CategoryPause, "", scale))
	}
	e.session.SetTimePause(gen, timeText, pauseText)
}

// aggregate republishes the merged result from the cached reads.
func (e *Engine) aggregate() timer.Result {
	r := e.session.Readings()
	return e.aggregator.Update(r.Count, r.Time, recognition.IsPaused(r.Pause, e.cfg.PausedMinLetters))
}

func (e *Engine) resetSession(reason string) {
	gen := e.session.Reset()
	e.aggregator.Reset()
	e.icons.Reset()
	e.lastCount, e.lastTime, e.lastIcon = time.Time{}, time.Time{}, time.Time{}
	e.resets.Add(1)
	e.logger.Info("session reset", "reason", reason, "generation", gen)
}

func (e *Engine) logStats() {
	e.capturer.LogStats()
	s := e.Stats()
	e.logger.Debug("engine.stats",
		"iterations", s.Iterations,
		"dispatched", s.Dispatched,
		"dropped", s.Dropped,
		"panics", s.Panics,
		"resets", s.Resets,
	)
}
