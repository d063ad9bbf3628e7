// Package config provides configuration management for the server orchestrator.
//
// Configuration is loaded from YAML and merged in layers, later layers
// overriding earlier ones:
//
//  1. Default configuration (built into the binary)
//  2. User configuration (~/.config/gdaserver/config.yaml)
//  3. Project configuration (./.gdaserver/config.yaml)
//
// A single file given with --config replaces layers 2 and 3. The
// GDA_SERVER_STATUS_PORT environment variable overrides the status port last.
//
// # Configuration Structure
//
//	statusPort: 19999
//	settleDelay: 4s
//	killTimeout: 1s
//	healthReport: true
//	preflight:
//	  - name: messaging
//	    address: localhost:61616
//	infrastructure:
//	  - role: log
//	    command: ["java", "-cp", "...", "gda.util.LogServer"]
//	  - role: name
//	    command: ["tnameserv", "-ORBInitialPort", "6700"]
//	    readyAddress: localhost:6700
//	  - role: event
//	    command: ["java", "-cp", "...", "gda.util.EventServer"]
//	objectServers:
//	  - profile: main
//	    kind: exec
//	    command: ["java", "-cp", "...", "gda.util.ObjectServer", "-p", "main"]
//	    startupGrace: 5s
//
// Infrastructure roles always start in the fixed order log, name, event,
// whatever their order in the file. Object servers start in file order.
package config
