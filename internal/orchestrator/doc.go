// Package orchestrator starts and stops the server's subsystems.
//
// # Startup
//
// The Sequencer runs the command list in two tiers. Infrastructure processes
// (log, name and event servers) are spawned in that fixed order and the
// sequencer then pauses once for the configured settle delay, optionally
// followed by readiness probes and preflight checks. Object servers are then
// brought up in list order. An object server that does not come up, or any
// error, stops the sequence and runs the shutdown routine immediately.
//
// Every started resource is recorded in the Registry. Only successfully
// started resources are ever registered.
//
// # Status port
//
// Once at least one object server is running the status port is opened. It
// answers STATUS from RegistryHealth when health reporting is enabled.
//
// # Shutdown
//
// The Coordinator runs the stop routine exactly once, no matter how many
// callers race to trigger it:
//
//  1. notify an attached terminal
//  2. close the status port
//  3. stop object servers in reverse start order, logging failures
//  4. kill infrastructure processes in reverse start order, warning about
//     processes that do not exit in time
//  5. release the run environment
//  6. signal completion to waiters
package orchestrator
