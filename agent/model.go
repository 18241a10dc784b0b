package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/eventmesh/core"
	"github.com/hupe1980/eventmesh/model"
)

// ModelAgentOptions configures the event-to-prompt mapping of a ModelAgent.
type ModelAgentOptions struct {
	// Instructions is passed to the model as system-level steering text.
	Instructions string

	// InputKey is the payload key read from incoming events. Defaults to "prompt".
	InputKey string

	// OutputType is the event type emitted with the completion. Defaults to
	// "<name>.response".
	OutputType string

	// OutputKey is the payload key the completion text is stored under.
	// Defaults to "text".
	OutputKey string
}

// ModelAgent answers events with an LLM completion. On every delivery it
// reads the prompt from the event payload, calls the model and emits one
// derived event carrying the completion, keeping the correlation id intact so
// an aggregator can fan the answer back in.
type ModelAgent struct {
	name  string
	model model.Model
	opts  ModelAgentOptions
}

// NewModelAgent creates a ModelAgent for the given model.
func NewModelAgent(name string, m model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		InputKey:   "prompt",
		OutputType: name + ".response",
		OutputKey:  "text",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelAgent{name: name, model: m, opts: opts}
}

// Name implements core.Agent.
func (a *ModelAgent) Name() string { return a.name }

// ReceiveEvent implements core.Agent. An event without the input payload key
// fails with a ValidationError; model errors surface unchanged and are
// isolated to this delivery by the dispatcher.
func (a *ModelAgent) ReceiveEvent(ctx context.Context, ev core.Event) ([]core.Event, error) {
	prompt := ev.DataString(a.opts.InputKey)
	if prompt == "" {
		return nil, core.NewValidationError(a.opts.InputKey, "event carries no prompt payload")
	}

	resp, err := a.model.Generate(ctx, model.Request{
		Instructions: a.opts.Instructions,
		Prompt:       prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", a.model.Info().Name, err)
	}

	out := ev.Derive(a.opts.OutputType, a.name).WithData(a.opts.OutputKey, resp.Text)
	return []core.Event{out}, nil
}
