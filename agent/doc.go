// Package agent provides ready-made implementations of the core.Agent
// contract: FunctionAgent wraps a plain function, CollectorAgent records
// received events, TerminateAgent turns the conventional terminate event into
// a dispatcher shutdown, and ModelAgent answers events with an LLM behind the
// model.Model interface.
package agent
