package notify

import "testing"

func TestPublisher_LatestAndFanOut(t *testing.T) {
	p := NewPublisher[int](2)
	if _, ok := p.Latest(); ok {
		t.Fatalf("expected no value before publish")
	}
	a, cancelA := p.Subscribe()
	b, cancelB := p.Subscribe()
	defer cancelB()
	p.Publish(1)
	if v, ok := p.Latest(); !ok || v != 1 {
		t.Fatalf("latest = %d %v", v, ok)
	}
	if <-a != 1 || <-b != 1 {
		t.Fatalf("subscribers missed value")
	}
	cancelA()
	cancelA()
	if _, open := <-a; open {
		t.Fatalf("cancelled channel should be closed")
	}
	p.Publish(2)
	if <-b != 2 {
		t.Fatalf("remaining subscriber missed value")
	}
}

func TestPublisher_SlowSubscriberDropsOldest(t *testing.T) {
	p := NewPublisher[int](2)
	ch, cancel := p.Subscribe()
	defer cancel()
	for i := 1; i <= 5; i++ {
		p.Publish(i)
	}
	if got := []int{<-ch, <-ch}; got[0] != 4 || got[1] != 5 {
		t.Fatalf("expected newest values [4 5], got %v", got)
	}
}

func TestPublisher_CloseEndsSubscriptions(t *testing.T) {
	p := NewPublisher[string](1)
	ch, cancel := p.Subscribe()
	p.Close()
	if _, open := <-ch; open {
		t.Fatalf("expected closed channel")
	}
	cancel()
	p.Publish("x")
	if v, _ := p.Latest(); v != "x" {
		t.Fatalf("latest should still update after close")
	}
	late, _ := p.Subscribe()
	if _, open := <-late; open {
		t.Fatalf("subscribe after close should yield closed channel")
	}
}
