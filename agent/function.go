package agent

import (
	"context"

	"github.com/hupe1980/eventmesh/core"
)

// HandlerFunc is the function signature wrapped by FunctionAgent.
type HandlerFunc func(ctx context.Context, ev core.Event) ([]core.Event, error)

// FunctionAgent adapts a plain function to the core.Agent contract. It is the
// lightest way to plug custom behavior into the mesh without defining a type.
type FunctionAgent struct {
	name string
	fn   HandlerFunc
}

// NewFunctionAgent wraps fn as an agent with the given name.
func NewFunctionAgent(name string, fn HandlerFunc) *FunctionAgent {
	return &FunctionAgent{name: name, fn: fn}
}

// Name implements core.Agent.
func (a *FunctionAgent) Name() string { return a.name }

// ReceiveEvent implements core.Agent by delegating to the wrapped function.
func (a *FunctionAgent) ReceiveEvent(ctx context.Context, ev core.Event) ([]core.Event, error) {
	return a.fn(ctx, ev)
}
