package agent

import (
	"context"
	"sync"

	"github.com/hupe1980/eventmesh/core"
)

// CollectorAgent records every event delivered to it. Useful in tests, demos
// and as a tap on event types of interest; it never produces follow-ups.
type CollectorAgent struct {
	name string

	mu     sync.Mutex
	events []core.Event
}

// NewCollectorAgent creates an empty collector.
func NewCollectorAgent(name string) *CollectorAgent {
	return &CollectorAgent{name: name}
}

// Name implements core.Agent.
func (a *CollectorAgent) Name() string { return a.name }

// ReceiveEvent implements core.Agent; the event is recorded and absorbed.
func (a *CollectorAgent) ReceiveEvent(_ context.Context, ev core.Event) ([]core.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil, nil
}

// Events returns a copy of the recorded events in delivery order.
func (a *CollectorAgent) Events() []core.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Event, len(a.events))
	copy(out, a.events)
	return out
}

// Len returns the number of recorded events.
func (a *CollectorAgent) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// Reset discards all recorded events.
func (a *CollectorAgent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = nil
}
