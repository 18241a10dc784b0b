package agent

import (
	"context"

	"github.com/hupe1980/eventmesh/core"
)

// StopFunc stops a dispatcher; typically dispatcher.Stop.
type StopFunc func(ctx context.Context) error

// TerminateAgent implements the shutdown convention: the dispatcher never
// special-cases the terminate event type, instead this agent subscribes to it
// and stops the dispatcher when it arrives.
//
//	r.AddRoute(core.EventTypeTerminate, agent.NewTerminateAgent("shutdown", d.Stop))
type TerminateAgent struct {
	name string
	stop StopFunc
}

// NewTerminateAgent creates an agent that invokes stop when it receives any
// event. Subscribe it to core.EventTypeTerminate.
func NewTerminateAgent(name string, stop StopFunc) *TerminateAgent {
	return &TerminateAgent{name: name, stop: stop}
}

// Name implements core.Agent.
func (a *TerminateAgent) Name() string { return a.name }

// ReceiveEvent implements core.Agent. Stop waits for the loop to exit and the
// loop waits for this very delivery to settle, so the stop runs in its own
// goroutine.
func (a *TerminateAgent) ReceiveEvent(ctx context.Context, _ core.Event) ([]core.Event, error) {
	go func() {
		_ = a.stop(context.WithoutCancel(ctx))
	}()
	return nil, nil
}
