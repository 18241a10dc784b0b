package core

import "context"

// Agent is the single contract every participant in the mesh implements.
//
// ReceiveEvent consumes one event and returns zero or more follow-up events,
// or an error. Implementations must:
//   - Respect context cancellation; never block indefinitely
//   - Return quickly or suspend cooperatively (the dispatcher awaits every
//     delivery before advancing to the next cycle)
//   - Make no ordering assumptions relative to other agents beyond the
//     router's subscription order within one batch
//
// Returned events are appended to the back of the dispatcher queue and seen
// in a later cycle, never the current one. A returned error is isolated to
// this delivery: it is reported but does not affect sibling subscribers or
// the rest of the batch.
type Agent interface {
	Name() string
	ReceiveEvent(ctx context.Context, ev Event) ([]Event, error)
}
