// Package app wires a jobgrid run together: it builds the run-scoped logger,
// loads and validates the job configuration through a config.Loader, hands
// it to the engine and, when a port is set, serves health and job status
// over HTTP for the lifetime of the run.
package app
