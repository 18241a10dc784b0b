package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/eventmesh/core"
	"github.com/hupe1980/eventmesh/logging"
	"github.com/hupe1980/eventmesh/observability"
	"github.com/hupe1980/eventmesh/router"
)

// Config defines tuning parameters for the dispatcher's processing loop.
//
// BatchSize is the only tunable recognized by the core contract; IdleInterval
// exists so the loop does not spin when the queue stays empty and the wake
// signal is missed.
type Config struct {
	// BatchSize limits how many events are drained from the pending queue per
	// cycle. Events beyond the limit stay queued for the next cycle.
	BatchSize int

	// IdleInterval is the fallback re-check interval used while the queue is
	// empty. The loop is also woken immediately by Dispatch, so this only
	// bounds the worst case.
	IdleInterval time.Duration
}

// DefaultConfig provides conservative defaults: small batches and a short
// idle re-check interval.
var DefaultConfig = Config{
	BatchSize:    10,
	IdleInterval: 10 * time.Millisecond,
}

// Options configures a Dispatcher instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters for the processing loop.
	// Defaults to DefaultConfig if not specified.
	Config Config

	// Logger provides structured logging for delivery failures and loop
	// lifecycle. Defaults to a NoOp logger if nil.
	Logger logging.Logger

	// Metrics records dispatch/delivery/cycle metrics.
	// Defaults to a no-op recorder.
	Metrics observability.MetricsRecorder

	// Spans traces cycles and deliveries.
	// Defaults to a no-op span manager.
	Spans observability.SpanManager
}

// WithConfig overrides the loop configuration.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithBatchSize overrides only the per-cycle batch size.
func WithBatchSize(n int) func(o *Options) {
	return func(o *Options) { o.Config.BatchSize = n }
}

// WithLogger sets the logger used by the processing loop.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the metrics recorder used by the processing loop.
func WithMetrics(m observability.MetricsRecorder) func(o *Options) {
	return func(o *Options) { o.Metrics = m }
}

// WithSpans sets the span manager used by the processing loop.
func WithSpans(s observability.SpanManager) func(o *Options) {
	return func(o *Options) { o.Spans = s }
}

// Dispatcher owns the pending-event queue and the processing loop. It is safe
// for concurrent use: Dispatch may be called from any goroutine, including
// from inside a subscriber's own ReceiveEvent (that is exactly how agents
// produce follow-up events).
type Dispatcher struct {
	router  *router.Router
	config  Config
	logger  logging.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	mu      sync.Mutex
	queue   []core.Event
	running bool
	stopCh  chan struct{} // closed by Stop to halt the loop after its current cycle
	doneCh  chan struct{} // closed by the loop on exit
	emptyCh chan struct{} // closed and replaced whenever the queue is observed empty
	wakeCh  chan struct{} // poked by Dispatch so an idle loop reacts immediately
}

// New creates a Dispatcher over the given router. The dispatcher does not
// take ownership of the router; subscriptions are typically registered before
// Start but AddRoute stays safe at any time.
func New(r *router.Router, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Config:  DefaultConfig,
		Logger:  logging.NoOpLogger{},
		Metrics: observability.NoopMetrics{},
		Spans:   observability.NoopSpanManager{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.BatchSize <= 0 {
		opts.Config.BatchSize = DefaultConfig.BatchSize
	}
	if opts.Config.IdleInterval <= 0 {
		opts.Config.IdleInterval = DefaultConfig.IdleInterval
	}

	return &Dispatcher{
		router:  r,
		config:  opts.Config,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		spans:   opts.Spans,
		emptyCh: make(chan struct{}),
		wakeCh:  make(chan struct{}, 1),
	}
}

// Dispatch appends an event to the pending queue and returns immediately; it
// never blocks. If the event carries no correlation id a fresh globally
// unique one is assigned before enqueueing. Once assigned, the correlation id
// is never mutated by the core.
func (d *Dispatcher) Dispatch(ev core.Event) {
	if ev.CorrelationID == "" {
		ev.CorrelationID = core.NewID()
	}

	d.mu.Lock()
	d.queue = append(d.queue, ev)
	d.mu.Unlock()

	d.metrics.RecordDispatch(context.Background(), ev.Type)

	// Wake an idle loop; drop the signal if one is already pending.
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

// Start transitions the dispatcher to running and begins the processing
// loop. Calling Start while already running is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	go d.loop(d.stopCh, d.doneCh)
}

// Stop signals the loop to halt after completing its current cycle and waits
// until it has actually exited (or ctx is done). Stop is idempotent and safe
// to call concurrently with Start and Dispatch; it only prevents new cycles
// from beginning, in-flight deliveries are never cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.running = false
		close(d.stopCh)
	}
	done := d.doneCh
	d.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the processing loop is currently active.
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// QueueLength returns the number of dispatched events not yet drained by the
// loop. Safe to call at any time.
func (d *Dispatcher) QueueLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// WaitForEmptyQueue blocks until the pending queue is observed empty,
// returning true, or until timeout (or ctx cancellation), returning false.
// The wait is recoverable: expiry cancels nothing and the call may simply be
// re-issued.
func (d *Dispatcher) WaitForEmptyQueue(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return true
		}
		empty := d.emptyCh
		d.mu.Unlock()

		select {
		case <-empty:
			// Queue was drained; re-check under the lock.
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// loop is the processing loop. It runs until stopCh is closed, draining up to
// BatchSize events per cycle and awaiting every delivery of the cycle before
// beginning the next one. Subscriber errors never exit the loop.
func (d *Dispatcher) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		batch := d.takeBatch()
		if len(batch) == 0 {
			select {
			case <-stopCh:
				return
			case <-d.wakeCh:
			case <-time.After(d.config.IdleInterval):
			}
			continue
		}

		d.processBatch(ctx, batch)
	}
}

// takeBatch removes up to BatchSize events from the front of the queue (FIFO)
// and notifies empty-queue waiters when the drain leaves nothing pending.
func (d *Dispatcher) takeBatch() []core.Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.queue)
	if n == 0 {
		return nil
	}
	if n > d.config.BatchSize {
		n = d.config.BatchSize
	}

	batch := make([]core.Event, n)
	copy(batch, d.queue[:n])
	d.queue = d.queue[n:]

	if len(d.queue) == 0 {
		close(d.emptyCh)
		d.emptyCh = make(chan struct{})
	}
	return batch
}

// pendingDelivery pairs one drained event with one resolved subscriber.
type pendingDelivery struct {
	ev    core.Event
	agent core.Agent
}

// processBatch delivers every event of the batch to its subscribers. The
// deliveries run concurrently but the method returns only after all of them
// have settled; produced events are then appended to the back of the queue in
// (event, subscriber) order so they are seen in a later cycle.
func (d *Dispatcher) processBatch(ctx context.Context, batch []core.Event) {
	start := time.Now()
	cycleCtx, cycleSpan := d.spans.StartCycleSpan(ctx, len(batch))

	var deliveries []pendingDelivery
	for _, ev := range batch {
		subs := d.router.SubscribersFor(ev.Type)
		if len(subs) == 0 {
			d.logger.Debug("no subscribers for event type=%s id=%s", ev.Type, ev.ID)
			continue
		}
		for _, sub := range subs {
			deliveries = append(deliveries, pendingDelivery{ev: ev, agent: sub})
		}
	}

	// Results are indexed so follow-up ordering stays deterministic even
	// though deliveries complete in arbitrary order.
	results := make([][]core.Event, len(deliveries))

	var wg sync.WaitGroup
	for i, del := range deliveries {
		wg.Add(1)
		go func(i int, del pendingDelivery) {
			defer wg.Done()

			deliveryStart := time.Now()
			dctx, span := d.spans.StartDeliverySpan(cycleCtx, del.agent.Name(), del.ev.Type, del.ev.CorrelationID)
			out, err := d.deliver(dctx, del.agent, del.ev)
			d.spans.EndSpanWithError(span, err)
			d.metrics.RecordDelivery(dctx, del.agent.Name(), time.Since(deliveryStart), err)

			if err != nil {
				// Isolated to this delivery: siblings and the rest of the
				// batch continue untouched.
				d.logger.Error("delivery failed agent=%s event_type=%s correlation_id=%s: %v",
					del.agent.Name(), del.ev.Type, del.ev.CorrelationID, err)
				return
			}
			results[i] = out
		}(i, del)
	}
	wg.Wait()

	produced := 0
	for _, out := range results {
		for _, ev := range out {
			d.Dispatch(ev)
			produced++
		}
	}

	d.spans.EndSpanWithError(cycleSpan, nil)
	d.metrics.RecordCycle(cycleCtx, len(batch), time.Since(start))
	d.metrics.RecordQueueDepth(cycleCtx, d.QueueLength())
	d.logger.Debug("cycle completed batch=%d produced=%d duration=%s", len(batch), produced, time.Since(start))
}

// deliver invokes a single subscriber, converting panics into errors so a
// misbehaving agent cannot take down the loop.
func (d *Dispatcher) deliver(ctx context.Context, a core.Agent, ev core.Event) (out []core.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s panicked: %v", a.Name(), r)
		}
	}()
	return a.ReceiveEvent(ctx, ev)
}
