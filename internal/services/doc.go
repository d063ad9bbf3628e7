// Package services defines the contract for object-tier servers.
//
// An object server is a leaf service identified by a profile name. It is
// brought up by an object command (see package commands) and torn down by the
// shutdown coordinator through Shutdown. Bring-up either yields a Service or
// nothing at all; a Service value therefore always represents a server that
// came up.
//
// # Optional Interfaces
//
// HealthChecker: services that can report their own health. The registry
// health provider uses it to fill the per-component results of a STATUS
// report. Services without it are reported as Unknown.
package services
