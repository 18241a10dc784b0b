// Package router maintains the registry mapping an event-type tag to the
// ordered list of agents subscribed to it. It is a pure lookup structure:
// registration order determines delivery order within a batch, absence of
// subscribers is a valid silent no-op, and the same agent may be registered
// under multiple tags. Registering an agent twice under the same tag delivers
// the event twice; AddRoute performs no deduplication.
package router

import (
	"sync"

	"github.com/hupe1980/eventmesh/core"
)

// Router is the type-to-subscriber registry consulted by the dispatcher on
// every cycle. Subscription lists are typically mutated at setup time and
// read during dispatch; all methods are safe for concurrent use.
type Router struct {
	mu     sync.RWMutex
	routes map[string][]core.Agent
}

// New constructs an empty Router.
func New() *Router {
	return &Router{routes: make(map[string][]core.Agent)}
}

// AddRoute appends agent to the subscriber list for eventType. No validation,
// no deduplication; duplicate registration causes duplicate delivery.
func (r *Router) AddRoute(eventType string, a core.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[eventType] = append(r.routes[eventType], a)
}

// SubscribersFor returns the current ordered subscriber list for eventType.
// The returned slice is a copy so callers can iterate without holding any
// lock; an empty result means no agent is interested in the tag.
func (r *Router) SubscribersFor(eventType string) []core.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.routes[eventType]
	if len(subs) == 0 {
		return nil
	}
	out := make([]core.Agent, len(subs))
	copy(out, subs)
	return out
}

// EventTypes returns the tags that currently have at least one subscriber.
func (r *Router) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.routes))
	for t := range r.routes {
		types = append(types, t)
	}
	return types
}
