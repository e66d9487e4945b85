package icons

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/notify"
	"github.com/soocke/coop-overlay-go/domain/recognition"
	"github.com/soocke/coop-overlay-go/domain/templates"
	"github.com/soocke/coop-overlay-go/domain/vision"
)

// State is the confirmation state of one icon label.
type State int

const (
	StateUnseen State = iota
	StateCandidate
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateCandidate:
		return "candidate"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Event is emitted when the race or the mutator list changes.
type Event struct {
	Race         string   // "" until confirmed
	Mutators     []string // confirmed mutators in confirmation order
	MutatorsDone bool     // no further mutators will be reported this session
}

type labelState struct {
	hits  int
	state State
}

// Recognizer confirms the session's race and mutator icons. A label becomes
// confirmed after a run of consecutive matching scans; any miss restarts the
// run. Confirmed labels stay confirmed until Reset.
type Recognizer struct {
	lib         *templates.Library
	raceROI     config.Rect
	mutatorROI  config.Rect
	threshold   float64
	confirmHits int
	search      time.Duration
	confirm     time.Duration
	timeout     time.Duration
	maxMutators int
	pub         *notify.Publisher[Event]
	logger      *slog.Logger
	now         func() time.Time

	mu           sync.Mutex
	labels       map[string]*labelState
	race         string
	mutators     []string
	mutatorsDone bool
	started      time.Time
	epoch        uint64
}

// NewRecognizer constructs an icon recognizer publishing to pub.
func NewRecognizer(cfg *config.Config, lib *templates.Library, pub *notify.Publisher[Event], logger *slog.Logger) *Recognizer {
	if lib == nil {
		lib = templates.NewLibrary()
	}
	if pub == nil {
		pub = notify.NewPublisher[Event](notify.DefaultBuffer)
	}
	return &Recognizer{
		lib:         lib,
		raceROI:     cfg.RaceROI,
		mutatorROI:  cfg.MutatorROI,
		threshold:   cfg.IconThreshold,
		confirmHits: cfg.IconConfirmHits,
		search:      cfg.IconSearchInterval(),
		confirm:     cfg.IconConfirmInterval(),
		timeout:     cfg.MutatorTimeout(),
		maxMutators: cfg.MaxMutators,
		pub:         pub,
		logger:      logger,
		now:         time.Now,
		labels:      map[string]*labelState{},
	}
}

// Publisher exposes the event stream.
func (r *Recognizer) Publisher() *notify.Publisher[Event] { return r.pub }

// BeginMatch starts the mutator timeout. The engine calls it once the HUD
// is visible, so time spent in menus does not count. Later calls are no-ops
// until Reset.
func (r *Recognizer) BeginMatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started.IsZero() {
		r.started = r.now()
	}
}

// MatchStarted reports whether BeginMatch ran in this session.
func (r *Recognizer) MatchStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.started.IsZero()
}

// scanPlan is the set of templates still pending when a scan started.
type scanPlan struct {
	epoch       uint64
	racePool    []*templates.Template
	mutatorPool []*templates.Template
}

// Scan matches the pending race and mutator templates against one frame.
// Matching runs without the lock; results are dropped if Reset ran meanwhile.
func (r *Recognizer) Scan(frame image.Image, scale recognition.Scale) {
	plan := r.prepare()
	raceHits := r.match(frame, scale, r.raceROI, plan.racePool)
	mutatorHits := r.match(frame, scale, r.mutatorROI, plan.mutatorPool)
	r.commit(plan, raceHits, mutatorHits)
}

func (r *Recognizer) prepare() scanPlan {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan := scanPlan{epoch: r.epoch}
	if r.race == "" {
		plan.racePool = r.lib.Pool(templates.CategoryRace, "")
	}
	if !r.mutatorsDone {
		for _, t := range r.lib.Pool(templates.CategoryMutator, "") {
			if r.stateLocked(t).state != StateConfirmed {
				plan.mutatorPool = append(plan.mutatorPool, t)
			}
		}
	}
	return plan
}

func (r *Recognizer) commit(plan scanPlan, raceHits, mutatorHits []bool) {
	r.mu.Lock()
	if plan.epoch != r.epoch {
		r.mu.Unlock()
		return
	}
	changed := false
	for i, t := range plan.racePool {
		if r.observe(t, raceHits[i]) && r.race == "" {
			r.race = t.Text
			changed = true
			if r.logger != nil {
				r.logger.Info("race confirmed", "race", r.race)
			}
		}
	}
	for i, t := range plan.mutatorPool {
		if r.mutatorsDone {
			break
		}
		if r.observe(t, mutatorHits[i]) {
			r.mutators = append(r.mutators, t.Text)
			changed = true
			if r.logger != nil {
				r.logger.Info("mutator confirmed", "mutator", t.Text, "total", len(r.mutators))
			}
			if len(r.mutators) >= r.maxMutators {
				r.mutatorsDone = true
			}
		}
	}
	if r.timedOutLocked() {
		r.mutatorsDone = true
		changed = true
		if r.logger != nil {
			r.logger.Info("mutator detection timed out with none confirmed")
		}
	}
	var ev Event
	if changed {
		ev = r.snapshotLocked()
	}
	r.mu.Unlock()
	if changed {
		r.pub.Publish(ev)
	}
}

// timedOutLocked reports whether the match has run past the timeout without
// any mutator being confirmed.
func (r *Recognizer) timedOutLocked() bool {
	if r.mutatorsDone || len(r.mutators) > 0 || r.started.IsZero() {
		return false
	}
	return r.now().Sub(r.started) >= r.timeout
}

// match returns, per template, whether its best score clears the threshold.
func (r *Recognizer) match(frame image.Image, scale recognition.Scale, roi config.Rect, pool []*templates.Template) []bool {
	hits := make([]bool, len(pool))
	if len(pool) == 0 {
		return hits
	}
	crop, err := vision.ExtractROI(frame, scale.Rect(roi), 1)
	if err != nil {
		return hits
	}
	s := vision.NewSearcher(vision.PlaneFromImage(crop))
	for i, t := range pool {
		m, ok := s.Best(t.GrayKernel(scale.Y))
		hits[i] = ok && m.Score >= r.threshold
	}
	return hits
}

// observe advances the label's consecutive-hit counter and reports whether
// this observation confirmed it.
func (r *Recognizer) observe(t *templates.Template, hit bool) bool {
	ls := r.stateLocked(t)
	if ls.state == StateConfirmed {
		return false
	}
	if !hit {
		ls.hits = 0
		ls.state = StateUnseen
		return false
	}
	ls.hits++
	ls.state = StateCandidate
	if ls.hits >= r.confirmHits {
		ls.state = StateConfirmed
		return true
	}
	return false
}

func (r *Recognizer) stateLocked(t *templates.Template) *labelState {
	id := t.Category + "/" + t.Key
	ls := r.labels[id]
	if ls == nil {
		ls = &labelState{}
		r.labels[id] = ls
	}
	return ls
}

// State returns the confirmation state of a label.
func (r *Recognizer) State(category, key string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ls := r.labels[category+"/"+key]; ls != nil {
		return ls.state
	}
	return StateUnseen
}

// Interval is the delay before the next scan: fast while any label is a
// candidate, slow otherwise.
func (r *Recognizer) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ls := range r.labels {
		if ls.state == StateCandidate {
			return r.confirm
		}
	}
	return r.search
}

// Done reports whether both the race and the mutator list are final.
func (r *Recognizer) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.race != "" && r.mutatorsDone
}

// Snapshot returns the current race and mutators.
func (r *Recognizer) Snapshot() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Recognizer) snapshotLocked() Event {
	return Event{
		Race:         r.race,
		Mutators:     append([]string(nil), r.mutators...),
		MutatorsDone: r.mutatorsDone,
	}
}

// Reset forgets every confirmation for a new session.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = map[string]*labelState{}
	r.race = ""
	r.mutators = nil
	r.mutatorsDone = false
	r.started = time.Time{}
	r.epoch++
}
