package sink

import (
	"context"
	"pairchat/domain/event"
	"sync"
)

// Recorder keeps every consumed event in memory.
// It backs offline tooling and tests that assert on what a connection received.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Consume(_ context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

// Named returns the recorded events carrying the given wire name, in order.
func (r *Recorder) Named(name string) []event.Event {
	var named []event.Event
	for _, e := range r.Events() {
		if e.Name() == name {
			named = append(named, e)
		}
	}
	return named
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
