// Package dispatcher owns the pending-event queue and the processing loop.
//
// Producers hand events to Dispatch, which assigns a correlation id when
// absent and appends to the FIFO queue without blocking. Once started, the
// loop drains up to BatchSize events per cycle, resolves subscribers through
// the router and delivers to each of them concurrently. Every event a
// subscriber returns is appended to the back of the queue and seen in a later
// cycle; every subscriber error is reported and isolated to that delivery.
// The loop only exits on an explicit Stop.
package dispatcher
