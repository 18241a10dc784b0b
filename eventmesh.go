// Package eventmesh provides a high-level façade over the router and
// dispatcher enabling rapid construction of event-driven multi-agent
// workflows. Most applications interact with this package by:
//  1. Creating a Mesh via New() (optionally overriding the dispatcher
//     configuration, logger and observability hooks)
//  2. Subscribing one or more agents to event types (Subscribe)
//  3. Starting the loop, dispatching events and draining or stopping
//
// The façade delegates routing to router.Router and queueing/delivery to
// dispatcher.Dispatcher while keeping setup ergonomics concise. All defaults
// are safe for local development and testing; production deployments
// typically supply a structured logger and OTel-backed observability.
package eventmesh

import (
	"context"
	"time"

	"github.com/hupe1980/eventmesh/core"
	"github.com/hupe1980/eventmesh/dispatcher"
	"github.com/hupe1980/eventmesh/logging"
	"github.com/hupe1980/eventmesh/observability"
	"github.com/hupe1980/eventmesh/router"
)

// Options configures the Mesh instance.
type Options struct {
	// DispatcherConfig tunes the processing loop (batch size, idle interval).
	DispatcherConfig dispatcher.Config

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Metrics records dispatch pipeline metrics (defaults to no-op).
	Metrics observability.MetricsRecorder

	// Spans traces cycles and deliveries (defaults to no-op).
	Spans observability.SpanManager
}

// Mesh is the high-level façade aggregating the router and dispatcher.
type Mesh struct {
	router     *router.Router
	dispatcher *dispatcher.Dispatcher
}

// New creates a new Mesh instance with optional overrides.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		DispatcherConfig: dispatcher.DefaultConfig,
		Logger:           logging.NoOpLogger{},
		Metrics:          observability.NoopMetrics{},
		Spans:            observability.NoopSpanManager{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := router.New()
	d := dispatcher.New(r,
		dispatcher.WithConfig(opts.DispatcherConfig),
		dispatcher.WithLogger(opts.Logger),
		dispatcher.WithMetrics(opts.Metrics),
		dispatcher.WithSpans(opts.Spans),
	)

	return &Mesh{router: r, dispatcher: d}
}

// Subscribe registers an agent for an event type. Registration order
// determines delivery order within a batch.
func (m *Mesh) Subscribe(eventType string, a core.Agent) {
	m.router.AddRoute(eventType, a)
}

// Dispatch enqueues an event; it never blocks.
func (m *Mesh) Dispatch(ev core.Event) { m.dispatcher.Dispatch(ev) }

// Start begins the processing loop. Idempotent.
func (m *Mesh) Start() { m.dispatcher.Start() }

// Stop halts the loop after its current cycle and waits for it to exit.
func (m *Mesh) Stop(ctx context.Context) error { return m.dispatcher.Stop(ctx) }

// Drain waits until the pending queue is empty or the timeout elapses,
// reporting whether the queue was observed empty.
func (m *Mesh) Drain(ctx context.Context, timeout time.Duration) bool {
	return m.dispatcher.WaitForEmptyQueue(ctx, timeout)
}

// QueueLength returns the number of pending events.
func (m *Mesh) QueueLength() int { return m.dispatcher.QueueLength() }

// IsRunning reports whether the processing loop is active.
func (m *Mesh) IsRunning() bool { return m.dispatcher.IsRunning() }

// Router exposes the underlying registry for advanced wiring.
func (m *Mesh) Router() *router.Router { return m.router }

// Dispatcher exposes the underlying dispatcher, e.g. to hand its Stop to an
// agent.TerminateAgent.
func (m *Mesh) Dispatcher() *dispatcher.Dispatcher { return m.dispatcher }
