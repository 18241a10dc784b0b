package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventTypeTerminate is the conventional shutdown signal. The dispatcher does
// not treat it specially; an agent subscribed to it (see agent.TerminateAgent)
// is expected to stop the dispatcher. Termination is layered on the same
// routing mechanism as every other event.
const EventTypeTerminate = "terminate"

// Event is the unit of information flowing through the dispatcher. It carries
// a type tag used for routing, a free-form source naming the producer, a
// correlation id linking causally related events and an open payload map.
//
// After emission an event should be treated as immutable. The CorrelationID
// is assigned by the dispatcher at enqueue time when absent and is never
// mutated afterwards by the core; agents deriving follow-up events propagate
// it by convention (see Derive).
type Event struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Source        string         `json:"source"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Data          map[string]any `json:"data,omitempty"`
}

// NewEvent creates a bare event of the given type authored by source. The
// correlation id is left empty; the dispatcher assigns one at enqueue time
// unless the producer sets it first.
func NewEvent(eventType, source string) Event {
	return Event{
		ID:        NewID(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataEvent creates an event carrying the given payload map.
func NewDataEvent(eventType, source string, data map[string]any) Event {
	e := NewEvent(eventType, source)
	e.Data = data
	return e
}

// NewTerminateEvent creates the conventional shutdown event.
func NewTerminateEvent(source string) Event {
	return NewEvent(EventTypeTerminate, source)
}

// NewID generates a unique identifier for events and correlation chains.
func NewID() string { return uuid.NewString() }

// Derive creates a new event of the given type authored by source that
// inherits this event's correlation id. This is the conventional way for an
// agent to produce follow-up events that stay linked to their cause.
func (e Event) Derive(eventType, source string) Event {
	d := NewEvent(eventType, source)
	d.CorrelationID = e.CorrelationID
	return d
}

// WithData returns a copy of the event with the payload entry set. The
// payload map is copied so the original event stays untouched.
func (e Event) WithData(key string, value any) Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}

// DataString returns the payload entry for key rendered as a string, or ""
// when the key is absent.
func (e Event) DataString(key string) string {
	v, ok := e.Data[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
// Useful for metrics & numeric serialization paths.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
