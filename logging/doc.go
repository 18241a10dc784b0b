// Package logging provides a minimal logging interface and adapters for
// eventmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the dispatcher and agents use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - MeshLogger with correlation-aware contextual helpers
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	d := dispatcher.New(r, dispatcher.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
