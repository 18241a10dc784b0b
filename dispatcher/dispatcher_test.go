package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/eventmesh/core"
	"github.com/hupe1980/eventmesh/router"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collectAgent records every event it receives and optionally produces
// follow-up events or an error.
type collectAgent struct {
	name   string
	mu     sync.Mutex
	events []core.Event
	fn     func(core.Event) ([]core.Event, error)
}

func newCollectAgent(name string) *collectAgent { return &collectAgent{name: name} }

func (c *collectAgent) Name() string { return c.name }

func (c *collectAgent) ReceiveEvent(_ context.Context, ev core.Event) ([]core.Event, error) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	if c.fn != nil {
		return c.fn(ev)
	}
	return nil, nil
}

func (c *collectAgent) received() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Event, len(c.events))
	copy(out, c.events)
	return out
}

func stopDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
}

func TestDispatcher_EndToEnd(t *testing.T) {
	r := router.New()
	s := newCollectAgent("S")
	r.AddRoute("TestEvent", s)

	d := New(r)
	d.Dispatch(core.NewDataEvent("TestEvent", "Src", map[string]any{"data": "test data"}))
	d.Start()
	assert.True(t, d.WaitForEmptyQueue(context.Background(), time.Second))
	stopDispatcher(t, d)

	got := s.received()
	require.Len(t, got, 1)
	assert.Equal(t, "test data", got[0].DataString("data"))
	assert.Equal(t, "Src", got[0].Source)
	assert.NotEmpty(t, got[0].CorrelationID, "dispatch must auto-assign a correlation id")
}

func TestDispatcher_FanOutCompleteness(t *testing.T) {
	r := router.New()
	a := newCollectAgent("A")
	b := newCollectAgent("B")
	r.AddRoute("TestEvent", a)
	r.AddRoute("TestEvent", b)

	d := New(r)
	ev := core.NewDataEvent("TestEvent", "Src", map[string]any{"k": "v"})
	d.Dispatch(ev)
	d.Start()
	require.True(t, d.WaitForEmptyQueue(context.Background(), time.Second))
	stopDispatcher(t, d)

	for _, c := range []*collectAgent{a, b} {
		got := c.received()
		require.Len(t, got, 1, "agent %s must be invoked exactly once", c.Name())
		assert.Equal(t, ev.ID, got[0].ID)
		assert.Equal(t, "v", got[0].DataString("k"))
		assert.NotEmpty(t, got[0].CorrelationID)
	}
	assert.Equal(t, a.received()[0].CorrelationID, b.received()[0].CorrelationID,
		"all subscribers must see the same assigned correlation id")
}

func TestDispatcher_CorrelationIDUniqueness(t *testing.T) {
	r := router.New()
	c := newCollectAgent("C")
	r.AddRoute("E", c)

	d := New(r)
	const m = 25
	for i := 0; i < m; i++ {
		d.Dispatch(core.NewEvent("E", "Src"))
	}
	d.Start()
	require.True(t, d.WaitForEmptyQueue(context.Background(), 2*time.Second))
	stopDispatcher(t, d)

	got := c.received()
	require.Len(t, got, m)
	seen := make(map[string]bool, m)
	for _, ev := range got {
		require.NotEmpty(t, ev.CorrelationID)
		assert.False(t, seen[ev.CorrelationID], "correlation id %s generated twice", ev.CorrelationID)
		seen[ev.CorrelationID] = true
	}
}

func TestDispatcher_FollowUpsSeenInLaterCycle(t *testing.T) {
	r := router.New()
	producer := newCollectAgent("producer")
	producer.fn = func(ev core.Event) ([]core.Event, error) {
		return []core.Event{ev.Derive("B", "producer")}, nil
	}
	sink := newCollectAgent("sink")
	r.AddRoute("A", producer)
	r.AddRoute("B", sink)

	d := New(r)
	d.Start()
	d.Dispatch(core.NewEvent("A", "Src"))

	require.Eventually(t, func() bool { return len(sink.received()) == 1 },
		2*time.Second, 5*time.Millisecond)
	stopDispatcher(t, d)

	got := sink.received()
	assert.Equal(t, producer.received()[0].CorrelationID, got[0].CorrelationID,
		"derived events keep the correlation id")
}

func TestDispatcher_SubscriberErrorIsolation(t *testing.T) {
	r := router.New()
	failing := newCollectAgent("failing")
	failing.fn = func(core.Event) ([]core.Event, error) { return nil, errors.New("boom") }
	healthy := newCollectAgent("healthy")
	r.AddRoute("E", failing)
	r.AddRoute("E", healthy)

	d := New(r)
	d.Start()
	d.Dispatch(core.NewEvent("E", "Src"))
	d.Dispatch(core.NewEvent("E", "Src"))

	require.Eventually(t, func() bool { return len(healthy.received()) == 2 },
		2*time.Second, 5*time.Millisecond)
	stopDispatcher(t, d)

	assert.Len(t, failing.received(), 2, "a failing subscriber keeps receiving later events")
	assert.True(t, d.QueueLength() == 0)
}

func TestDispatcher_PanickingSubscriberDoesNotStopLoop(t *testing.T) {
	r := router.New()
	panicking := newCollectAgent("panicking")
	panicking.fn = func(core.Event) ([]core.Event, error) { panic("kaboom") }
	healthy := newCollectAgent("healthy")
	r.AddRoute("E", panicking)
	r.AddRoute("E", healthy)

	d := New(r)
	d.Start()
	d.Dispatch(core.NewEvent("E", "Src"))

	require.Eventually(t, func() bool { return len(healthy.received()) == 1 },
		2*time.Second, 5*time.Millisecond)
	stopDispatcher(t, d)
}

func TestDispatcher_DrainAccuracy(t *testing.T) {
	r := router.New()
	r.AddRoute("E", newCollectAgent("C"))

	d := New(r)
	for i := 0; i < 3; i++ {
		d.Dispatch(core.NewEvent("E", "Src"))
	}
	assert.Equal(t, 3, d.QueueLength(), "queue length counts not-yet-processed events while stopped")

	d.Start()
	require.True(t, d.WaitForEmptyQueue(context.Background(), time.Second))
	stopDispatcher(t, d)
	assert.Equal(t, 0, d.QueueLength())
}

func TestDispatcher_WaitForEmptyQueueTimeout(t *testing.T) {
	d := New(router.New())
	d.Dispatch(core.NewEvent("E", "Src"))

	start := time.Now()
	ok := d.WaitForEmptyQueue(context.Background(), 50*time.Millisecond)
	assert.False(t, ok, "queue never drains while the loop is stopped")
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDispatcher_WaitForEmptyQueueImmediate(t *testing.T) {
	d := New(router.New())
	assert.True(t, d.WaitForEmptyQueue(context.Background(), 0), "an empty queue resolves immediately")
}

func TestDispatcher_StartStopIdempotent(t *testing.T) {
	d := New(router.New())
	assert.False(t, d.IsRunning())

	d.Start()
	d.Start() // no-op while running
	assert.True(t, d.IsRunning())

	stopDispatcher(t, d)
	assert.False(t, d.IsRunning())
	stopDispatcher(t, d) // idempotent
}

func TestDispatcher_StopWithoutStart(t *testing.T) {
	d := New(router.New())
	require.NoError(t, d.Stop(context.Background()))
}

func TestDispatcher_BatchSizeBoundsCycle(t *testing.T) {
	r := router.New()
	c := newCollectAgent("C")
	r.AddRoute("E", c)

	d := New(r, WithBatchSize(2))
	for i := 0; i < 7; i++ {
		d.Dispatch(core.NewEvent("E", "Src"))
	}
	d.Start()
	require.True(t, d.WaitForEmptyQueue(context.Background(), 2*time.Second))
	stopDispatcher(t, d)

	assert.Len(t, c.received(), 7, "all events are delivered across multiple cycles")
}

func TestDispatcher_NoSubscribersIsSilentNoOp(t *testing.T) {
	d := New(router.New())
	d.Start()
	d.Dispatch(core.NewEvent("Unrouted", "Src"))
	require.True(t, d.WaitForEmptyQueue(context.Background(), time.Second))
	stopDispatcher(t, d)
	assert.Equal(t, 0, d.QueueLength())
}

func TestDispatcher_DispatchFromInsideSubscriber(t *testing.T) {
	r := router.New()
	var d *Dispatcher
	reentrant := newCollectAgent("reentrant")
	reentrant.fn = func(ev core.Event) ([]core.Event, error) {
		if ev.Type == "A" {
			d.Dispatch(ev.Derive("B", "reentrant"))
		}
		return nil, nil
	}
	r.AddRoute("A", reentrant)
	r.AddRoute("B", reentrant)

	d = New(r)
	d.Start()
	d.Dispatch(core.NewEvent("A", "Src"))

	require.Eventually(t, func() bool { return len(reentrant.received()) == 2 },
		2*time.Second, 5*time.Millisecond)
	stopDispatcher(t, d)
}
