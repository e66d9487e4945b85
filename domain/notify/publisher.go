package notify

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 4

// Publisher holds the latest published value behind an atomic pointer and
// fans every publication out to subscriber channels. A slow subscriber never
// blocks Publish: when its buffer is full the oldest queued value is dropped.
type Publisher[T any] struct {
	latest atomic.Pointer[T]
	buffer int

	mu     sync.Mutex
	subs   map[chan T]struct{}
	closed bool
}

// NewPublisher returns a publisher whose subscriber channels hold buffer values.
func NewPublisher[T any](buffer int) *Publisher[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Publisher[T]{buffer: buffer, subs: map[chan T]struct{}{}}
}

// Latest returns the most recent value. ok is false before the first Publish.
func (p *Publisher[T]) Latest() (v T, ok bool) {
	ptr := p.latest.Load()
	if ptr == nil {
		return v, false
	}
	return *ptr, true
}

// Publish stores v and delivers it to every subscriber.
func (p *Publisher[T]) Publish(v T) {
	p.latest.Store(&v)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for ch := range p.subs {
		deliver(ch, v)
	}
}

func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; it is safe to call more than once.
func (p *Publisher[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, p.buffer)
	p.mu.Lock()
	if p.closed {
		close(ch)
		p.mu.Unlock()
		return ch, func() {}
	}
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[ch]; ok {
				delete(p.subs, ch)
				close(ch)
			}
		})
	}
}

// Close closes every subscriber channel. Later publications only update Latest.
func (p *Publisher[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for ch := range p.subs {
		delete(p.subs, ch)
		close(ch)
	}
}
