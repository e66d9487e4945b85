package session

import (
	"image"
	"sync"
	"testing"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/recognition"
)

func TestSession_LocksOncePerGeneration(t *testing.T) {
	s := New()
	gen := s.Generation()
	l := recognition.Layout{Index: 1, Count: image.Rect(0, 0, 10, 10)}
	if !s.LockLayout(gen, l) {
		t.Fatalf("first lock should succeed")
	}
	if s.LockLayout(gen, recognition.Layout{Index: 2}) {
		t.Fatalf("layout must not be replaced within a session")
	}
	if got, ok := s.Layout(); !ok || got.Index != 1 {
		t.Fatalf("unexpected layout %+v", got)
	}
	if !s.LockColor(gen, config.ColorProfile{Name: "zerg"}) || s.LockColor(gen, config.ColorProfile{Name: "terran"}) {
		t.Fatalf("color lock semantics broken")
	}
}

func TestSession_ResetDropsStaleWrites(t *testing.T) {
	s := New()
	old := s.Generation()
	s.LockLayout(old, recognition.Layout{Index: 1})
	s.SetCount(old, "3/5")
	next := s.Reset()
	if next == old {
		t.Fatalf("reset must advance generation")
	}
	if _, ok := s.Layout(); ok {
		t.Fatalf("layout survived reset")
	}
	if s.Readings().Count != nil {
		t.Fatalf("count survived reset")
	}
	if s.LockLayout(old, recognition.Layout{Index: 2}) || s.SetCount(old, "4/5") || s.SetTimePause(old, "1:00", "") {
		t.Fatalf("writes from a finished session must be rejected")
	}
	if _, ok := s.Layout(); ok || s.Readings().Count != nil || s.Readings().Time != "" {
		t.Fatalf("stale write leaked into new session")
	}
}

func TestSession_CountIsSticky(t *testing.T) {
	s := New()
	gen := s.Generation()
	s.SetCount(gen, "2/5")
	s.SetCount(gen, "")
	s.SetCount(gen, "/")
	r := s.Readings()
	if r.Count == nil || *r.Count != 2 || r.CountText != "2/5" {
		t.Fatalf("count should persist across blank reads: %+v", r)
	}
	s.SetTimePause(gen, "1:00", "")
	s.SetTimePause(gen, "", "PAUSED")
	if r := s.Readings(); r.Time != "" || r.Pause != "PAUSED" {
		t.Fatalf("time/pause follow the latest read: %+v", r)
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				gen := s.Generation()
				s.SetCount(gen, "1/5")
				s.SetTimePause(gen, "0:30", "")
				_ = s.Readings()
				if i == 0 && j%50 == 0 {
					s.Reset()
				}
			}
		}(i)
	}
	wg.Wait()
}
