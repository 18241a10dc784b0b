// Package aggregator implements fan-in over correlated events. An Aggregator
// is an ordinary agent: it buffers incoming events per correlation id and
// defers output until at least one event of every required type has arrived
// for that id, then hands the buffered set to its process hook and clears the
// entry. A correlation id absent from the buffer is indistinguishable from
// "never seen" and from "already completed".
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/eventmesh/core"
	"github.com/hupe1980/eventmesh/logging"
)

// ProcessFunc combines a complete buffered set into zero or more derived
// events. It is invoked exactly once per completed correlation id, with the
// events in arrival order. Returning an empty slice is a valid outcome when
// the inputs turn out to be insufficient despite being complete by type.
type ProcessFunc func(ctx context.Context, events []core.Event) ([]core.Event, error)

// Options configures an Aggregator.
type Options struct {
	// Logger records buffer progress. Defaults to a NoOp logger.
	Logger logging.Logger

	// BufferTTL bounds how long an incomplete correlation buffer is retained.
	// Entries idle longer than the TTL are evicted lazily on the next
	// delivery. Zero disables eviction, matching the unbounded behavior of
	// buffers that never complete.
	BufferTTL time.Duration
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithBufferTTL enables eviction of incomplete correlation buffers idle
// longer than ttl.
func WithBufferTTL(ttl time.Duration) func(o *Options) {
	return func(o *Options) { o.BufferTTL = ttl }
}

// entry is the buffered state for one correlation id.
type entry struct {
	events   []core.Event
	lastSeen time.Time
}

// Aggregator buffers partial results per correlation id until a required set
// of event types is complete. It implements core.Agent and is safe for
// concurrent use; completions driven by the dispatcher loop are observed by
// concurrent WaitForEvents callers.
type Aggregator struct {
	name     string
	required []string
	process  ProcessFunc
	logger   logging.Logger
	ttl      time.Duration

	mu      sync.Mutex
	buffers map[string]*entry
	waiters map[string][]chan []core.Event
}

// New constructs an Aggregator requiring at least one event of every type in
// required before process fires. The required set must be non-empty.
func New(name string, required []string, process ProcessFunc, optFns ...func(o *Options)) *Aggregator {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	req := make([]string, len(required))
	copy(req, required)

	return &Aggregator{
		name:     name,
		required: req,
		process:  process,
		logger:   opts.Logger,
		ttl:      opts.BufferTTL,
		buffers:  make(map[string]*entry),
		waiters:  make(map[string][]chan []core.Event),
	}
}

// Name implements core.Agent.
func (a *Aggregator) Name() string { return a.name }

// RequiredTypes returns a copy of the required event-type set.
func (a *Aggregator) RequiredTypes() []string {
	out := make([]string, len(a.required))
	copy(out, a.required)
	return out
}

// ReceiveEvent implements core.Agent. An event without a correlation id fails
// immediately with a ValidationError and is not buffered; this is a hard
// precondition. Otherwise the event is appended to the buffer for its
// correlation id and, once the entry holds at least one event of every
// required type (in any arrival order), the process hook runs with the
// buffered list, the entry is deleted and the hook's result is returned.
// Incomplete sets are absorbed silently.
func (a *Aggregator) ReceiveEvent(ctx context.Context, ev core.Event) ([]core.Event, error) {
	if ev.CorrelationID == "" {
		return nil, core.NewValidationError("correlation ID", "event has no correlation id")
	}

	a.mu.Lock()
	if a.ttl > 0 {
		a.evictStaleLocked(time.Now())
	}

	e, ok := a.buffers[ev.CorrelationID]
	if !ok {
		e = &entry{}
		a.buffers[ev.CorrelationID] = e
	}
	e.events = append(e.events, ev)
	e.lastSeen = time.Now()

	have := a.presentTypesLocked(e)
	complete := have == len(a.required)
	a.logger.Debug("aggregation progress correlation_id=%s have=%d need=%d", ev.CorrelationID, have, len(a.required))

	if !complete {
		a.mu.Unlock()
		return nil, nil
	}

	// Complete: snapshot, clear the entry and wake waiters before running
	// the hook. The buffer entry is deleted, not retained.
	events := e.events
	delete(a.buffers, ev.CorrelationID)
	waiters := a.waiters[ev.CorrelationID]
	delete(a.waiters, ev.CorrelationID)
	a.mu.Unlock()

	for _, w := range waiters {
		w <- events // buffered size 1, never blocks
	}

	if a.process == nil {
		return nil, nil
	}
	return a.process(ctx, events)
}

// WaitForEvents blocks until the buffer for correlationID becomes complete or
// until timeout (or ctx cancellation), whichever comes first. On completion
// it returns the buffered set; on expiry it returns a TimeoutError. The wait
// is recoverable and cancels nothing: the buffer keeps accumulating
// independently and may still complete later.
func (a *Aggregator) WaitForEvents(ctx context.Context, correlationID string, timeout time.Duration) ([]core.Event, error) {
	ch := make(chan []core.Event, 1)

	a.mu.Lock()
	a.waiters[correlationID] = append(a.waiters[correlationID], ch)
	a.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case events := <-ch:
		return events, nil
	case <-timer.C:
		a.removeWaiter(correlationID, ch)
		return nil, core.NewTimeoutError("WaitForEvents", timeout)
	case <-ctx.Done():
		a.removeWaiter(correlationID, ch)
		return nil, ctx.Err()
	}
}

// removeWaiter unregisters a waiter channel after a timed-out or cancelled
// wait. If a completion raced the deadline the channel is already gone from
// the map and there is nothing to remove.
func (a *Aggregator) removeWaiter(correlationID string, ch chan []core.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ws := a.waiters[correlationID]
	for i, w := range ws {
		if w == ch {
			a.waiters[correlationID] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(a.waiters[correlationID]) == 0 {
		delete(a.waiters, correlationID)
	}
}

// BufferedCorrelations returns the correlation ids with incomplete buffers.
// Intended for introspection and tests.
func (a *Aggregator) BufferedCorrelations() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.buffers))
	for id := range a.buffers {
		out = append(out, id)
	}
	return out
}

// presentTypesLocked counts how many required types have at least one buffered
// event. Caller must hold the mutex.
func (a *Aggregator) presentTypesLocked(e *entry) int {
	have := 0
	for _, t := range a.required {
		for _, ev := range e.events {
			if ev.Type == t {
				have++
				break
			}
		}
	}
	return have
}

// evictStaleLocked drops incomplete buffers idle longer than the TTL. Caller
// must hold the mutex.
func (a *Aggregator) evictStaleLocked(now time.Time) {
	for id, e := range a.buffers {
		if now.Sub(e.lastSeen) > a.ttl {
			delete(a.buffers, id)
			a.logger.Warn("evicted stale correlation buffer correlation_id=%s events=%d", id, len(e.events))
		}
	}
}
