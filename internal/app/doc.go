// Package app wires the server together: it loads the configuration, claims
// the run directory, builds the orchestrator and runs it as the controlling
// thread until shutdown.
package app
