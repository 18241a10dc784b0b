// Package core defines the data unit (Event), the minimal participant
// contract (Agent) and the error taxonomy shared by every other package in
// eventmesh. It deliberately carries no behavior beyond constructors and
// small accessors so that router, dispatcher and aggregator can depend on it
// without cycles.
package core
