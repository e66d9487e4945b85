package icons

import (
	"image"
	"log/slog"
	"testing"
	"time"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/notify"
	"github.com/soocke/coop-overlay-go/domain/recognition"
	"github.com/soocke/coop-overlay-go/domain/templates"
	"github.com/soocke/coop-overlay-go/domain/vision/vistest"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

const iconScale = 3

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaselineWidth, cfg.BaselineHeight = 200, 100
	cfg.RaceROI = config.Rect{X0: 0, Y0: 0, X1: 40, Y1: 40}
	cfg.MutatorROI = config.Rect{X0: 50, Y0: 0, X1: 120, Y1: 40}
	cfg.IconConfirmHits = 3
	cfg.MaxMutators = 2
	return cfg
}

func testLibrary() *templates.Library {
	lib := templates.NewLibrary()
	icon := func(key, category string, r rune) {
		lib.Add(lib.NewTemplate(key, category, "", vistest.TextImage(string(r), iconScale)))
	}
	icon("terran", templates.CategoryRace, 'U')
	icon("zerg", templates.CategoryRace, 'X')
	icon("void-rifts", templates.CategoryMutator, '8')
	icon("walking-infested", templates.CategoryMutator, '4')
	return lib
}

type iconFrames struct {
	race     string
	mutators string
}

func (f iconFrames) render() *image.RGBA {
	frame := vistest.Frame(200, 100, vistest.Background)
	if f.race != "" {
		vistest.DrawText(frame, 10, 8, f.race, iconScale, vistest.White)
	}
	for i, r := range f.mutators {
		vistest.DrawText(frame, 55+i*25, 8, string(r), iconScale, vistest.White)
	}
	return frame
}

func newTestRecognizer(cfg *config.Config) (*Recognizer, *fakeClock, <-chan Event, func()) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	pub := notify.NewPublisher[Event](8)
	ch, cancel := pub.Subscribe()
	r := NewRecognizer(cfg, testLibrary(), pub, discardLogger)
	r.now = clock.Now
	return r, clock, ch, cancel
}

var unit = recognition.Scale{X: 1, Y: 1}

func TestRecognizer_ConfirmsAfterConsecutiveHits(t *testing.T) {
	cfg := testConfig()
	r, _, ch, cancel := newTestRecognizer(cfg)
	defer cancel()
	frame := iconFrames{race: "U"}.render()

	if r.Interval() != cfg.IconSearchInterval() {
		t.Fatalf("expected searching cadence before any hit")
	}
	r.Scan(frame, unit)
	r.Scan(frame, unit)
	if st := r.State(templates.CategoryRace, "terran"); st != StateCandidate {
		t.Fatalf("expected candidate, got %v", st)
	}
	if r.Interval() != cfg.IconConfirmInterval() {
		t.Fatalf("expected confirming cadence while a candidate is pending")
	}
	if len(ch) != 0 {
		t.Fatalf("no event before confirmation")
	}
	r.Scan(frame, unit)
	if st := r.State(templates.CategoryRace, "terran"); st != StateConfirmed {
		t.Fatalf("expected confirmed, got %v", st)
	}
	ev := <-ch
	if ev.Race != "terran" || len(ev.Mutators) != 0 || ev.MutatorsDone {
		t.Fatalf("unexpected event %+v", ev)
	}
	if r.State(templates.CategoryRace, "zerg") == StateConfirmed {
		t.Fatalf("other race must not confirm")
	}

	// Confirmed race is immutable: scanning a different race changes nothing.
	other := iconFrames{race: "X"}.render()
	for i := 0; i < 5; i++ {
		r.Scan(other, unit)
	}
	if r.Snapshot().Race != "terran" || len(ch) != 0 {
		t.Fatalf("race changed after confirmation")
	}
}

func TestRecognizer_MissResetsCounter(t *testing.T) {
	cfg := testConfig()
	r, _, ch, cancel := newTestRecognizer(cfg)
	defer cancel()
	hit := iconFrames{race: "U"}.render()
	miss := iconFrames{}.render()

	r.Scan(hit, unit)
	r.Scan(hit, unit)
	r.Scan(miss, unit)
	if st := r.State(templates.CategoryRace, "terran"); st != StateUnseen {
		t.Fatalf("miss should reset to unseen, got %v", st)
	}
	r.Scan(hit, unit)
	r.Scan(hit, unit)
	if len(ch) != 0 {
		t.Fatalf("confirmation needs a fresh run of hits")
	}
	r.Scan(hit, unit)
	if ev := <-ch; ev.Race != "terran" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestRecognizer_MutatorsAccumulateUntilMax(t *testing.T) {
	cfg := testConfig()
	r, _, ch, cancel := newTestRecognizer(cfg)
	defer cancel()
	one := iconFrames{mutators: "8"}.render()
	both := iconFrames{mutators: "84"}.render()

	for i := 0; i < 3; i++ {
		r.Scan(one, unit)
	}
	ev := <-ch
	if len(ev.Mutators) != 1 || ev.Mutators[0] != "void-rifts" || ev.MutatorsDone {
		t.Fatalf("unexpected first mutator event %+v", ev)
	}
	for i := 0; i < 3; i++ {
		r.Scan(both, unit)
	}
	ev = <-ch
	if len(ev.Mutators) != 2 || ev.Mutators[1] != "walking-infested" || !ev.MutatorsDone {
		t.Fatalf("unexpected second mutator event %+v", ev)
	}
	if r.Done() {
		t.Fatalf("race still unknown, recognizer not done")
	}
}

func TestRecognizer_MutatorTimeoutConfirmsEmpty(t *testing.T) {
	cfg := testConfig()
	r, clock, ch, cancel := newTestRecognizer(cfg)
	defer cancel()
	blank := iconFrames{race: "U"}.render()

	r.BeginMatch()
	r.Scan(blank, unit)
	clock.Advance(cfg.MutatorTimeout() - time.Second)
	r.Scan(blank, unit)
	if len(ch) != 0 {
		t.Fatalf("no event expected before timeout")
	}
	clock.Advance(2 * time.Second)
	r.Scan(blank, unit)
	var last Event
	for len(ch) > 0 {
		last = <-ch
	}
	if !last.MutatorsDone || len(last.Mutators) != 0 || last.Race != "terran" {
		t.Fatalf("expected terran with confirmed-empty mutators, got %+v", last)
	}
	if !r.Done() {
		t.Fatalf("recognizer should be done")
	}
}

func TestRecognizer_ResetStartsOver(t *testing.T) {
	cfg := testConfig()
	r, _, ch, cancel := newTestRecognizer(cfg)
	defer cancel()
	frame := iconFrames{race: "U"}.render()
	for i := 0; i < 3; i++ {
		r.Scan(frame, unit)
	}
	<-ch
	r.Reset()
	if r.Snapshot().Race != "" || r.State(templates.CategoryRace, "terran") != StateUnseen {
		t.Fatalf("reset did not clear state")
	}
	zerg := iconFrames{race: "X"}.render()
	for i := 0; i < 3; i++ {
		r.Scan(zerg, unit)
	}
	if ev := <-ch; ev.Race != "zerg" {
		t.Fatalf("expected zerg after reset, got %+v", ev)
	}
}

func TestRecognizer_TimeoutWaitsForMatchStart(t *testing.T) {
	cfg := testConfig()
	r, clock, ch, cancel := newTestRecognizer(cfg)
	defer cancel()
	lobby := iconFrames{}.render()
	for i := 0; i < 31; i++ {
		r.Scan(lobby, unit)
		clock.Advance(time.Second)
	}
	if r.Snapshot().MutatorsDone {
		t.Fatalf("time before the match must not count toward the timeout")
	}

	r.BeginMatch()
	match := iconFrames{race: "U", mutators: "8"}.render()
	for i := 0; i < cfg.IconConfirmHits; i++ {
		r.Scan(match, unit)
		clock.Advance(time.Second)
	}
	var last Event
	for len(ch) > 0 {
		last = <-ch
	}
	if last.Race != "terran" || len(last.Mutators) != 1 || last.Mutators[0] != "void-rifts" {
		t.Fatalf("expected terran with void-rifts, got %+v", last)
	}
	if r.State(templates.CategoryMutator, "void-rifts") != StateConfirmed {
		t.Fatalf("mutator should be confirmed")
	}
}

func TestRecognizer_TimeoutKeepsConfirmedMutators(t *testing.T) {
	cfg := testConfig()
	r, clock, ch, cancel := newTestRecognizer(cfg)
	defer cancel()
	r.BeginMatch()
	one := iconFrames{mutators: "8"}.render()
	for i := 0; i < cfg.IconConfirmHits; i++ {
		r.Scan(one, unit)
	}
	clock.Advance(cfg.MutatorTimeout() + time.Second)
	r.Scan(one, unit)
	var last Event
	for len(ch) > 0 {
		last = <-ch
	}
	if last.MutatorsDone || len(last.Mutators) != 1 {
		t.Fatalf("timeout must only confirm an empty list, got %+v", last)
	}
	if r.Snapshot().MutatorsDone {
		t.Fatalf("detection should keep looking for further mutators")
	}
}

func TestRecognizer_ResetDiscardsInFlightScan(t *testing.T) {
	cfg := testConfig()
	r, _, ch, cancel := newTestRecognizer(cfg)
	defer cancel()
	frame := iconFrames{race: "U"}.render()
	for i := 0; i < cfg.IconConfirmHits-1; i++ {
		r.Scan(frame, unit)
	}

	plan := r.prepare()
	raceHits := r.match(frame, unit, r.raceROI, plan.racePool)
	mutatorHits := r.match(frame, unit, r.mutatorROI, plan.mutatorPool)
	r.Reset()
	r.commit(plan, raceHits, mutatorHits)

	if st := r.State(templates.CategoryRace, "terran"); st != StateUnseen {
		t.Fatalf("scan from before the reset leaked into the new session: %v", st)
	}
	if len(ch) != 0 || r.Snapshot().Race != "" {
		t.Fatalf("no confirmation expected after reset")
	}
}
