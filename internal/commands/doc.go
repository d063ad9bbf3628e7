// Package commands provides the uniform representation of something the
// server can start.
//
// A Command is one of two variants:
//
//   - InfrastructureCommand: spawns a foundational backend process (log,
//     name or event server) and returns a ProcessHandle as soon as the
//     process is running.
//   - ObjectCommand: brings up a leaf object server keyed by profile and
//     returns a services.Service, or nothing when the server did not come up.
//
// FromConfig turns a config.ServerConfig into the ordered command list the
// sequencer consumes. Object server kinds are looked up in a Factories
// registry; "exec" is built in and further kinds can be registered in Go.
//
// Spawned processes run in their own process group so that Kill reaches any
// helper processes they start. Their stdout and stderr are relayed to the
// log line by line.
package commands
