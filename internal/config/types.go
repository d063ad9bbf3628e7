package config

import (
	"time"
)

// ServerConfig is the top-level configuration structure for the server orchestrator.
type ServerConfig struct {
	StatusPort      int           `yaml:"statusPort,omitempty" validate:"min=1,max=65535"` // Status port (default: 19999)
	StatusHost      string        `yaml:"statusHost,omitempty"`                            // Bind host, empty means all interfaces
	SettleDelay     time.Duration `yaml:"settleDelay,omitempty" validate:"min=0"`          // Pause after the infrastructure prefix
	KillTimeout     time.Duration `yaml:"killTimeout,omitempty" validate:"min=0"`          // Wait bound after killing an infrastructure process
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty" validate:"min=0"`      // Bound for each object server graceful shutdown
	ReadyTimeout    time.Duration `yaml:"readyTimeout,omitempty" validate:"min=0"`         // Bound for readiness probes and preflight checks
	RunDir          string        `yaml:"runDir,omitempty" validate:"required"`            // Directory holding the lock and pid marker
	HealthReport    bool          `yaml:"healthReport,omitempty"`                          // Attach the registry-backed health provider
	MetricsAddress  string        `yaml:"metricsAddress,omitempty"`                        // Optional Prometheus endpoint, e.g. "localhost:9464"

	Preflight      []PreflightCheck           `yaml:"preflight,omitempty" validate:"dive"`
	Infrastructure []InfrastructureDefinition `yaml:"infrastructure,omitempty" validate:"dive"`
	ObjectServers  []ObjectServerDefinition   `yaml:"objectServers,omitempty" validate:"dive"`
}

// Role names a foundational backend process.
type Role string

const (
	RoleLog   Role = "log"
	RoleName  Role = "name"
	RoleEvent Role = "event"
)

// RoleOrder is the fixed start order of the infrastructure roles.
var RoleOrder = []Role{RoleLog, RoleName, RoleEvent}

// Rank returns the position of r in RoleOrder, or -1 for an unknown role.
func (r Role) Rank() int {
	for i, known := range RoleOrder {
		if known == r {
			return i
		}
	}
	return -1
}

// ObjectServerKind selects how an object server is brought up.
type ObjectServerKind string

const (
	// ObjectServerKindExec runs the object server as a child process.
	ObjectServerKindExec ObjectServerKind = "exec"
)

// InfrastructureDefinition defines how to launch one infrastructure process.
type InfrastructureDefinition struct {
	Role         Role              `yaml:"role" validate:"required,oneof=log name event"`
	Command      []string          `yaml:"command" validate:"required,min=1,dive,required"` // Executable and its arguments
	Env          map[string]string `yaml:"env,omitempty"`                                   // Extra environment variables
	Dir          string            `yaml:"dir,omitempty"`                                   // Working directory
	ReadyAddress string            `yaml:"readyAddress,omitempty" validate:"omitempty,hostname_port"`
}

// ObjectServerDefinition defines one object-tier server, keyed by profile.
type ObjectServerDefinition struct {
	Profile      string            `yaml:"profile" validate:"required"`
	Kind         ObjectServerKind  `yaml:"kind,omitempty"` // Defaults to "exec"
	Command      []string          `yaml:"command,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	Dir          string            `yaml:"dir,omitempty"`
	StartupGrace time.Duration     `yaml:"startupGrace,omitempty" validate:"min=0"` // An exit inside this window means the server did not come up
}

// PreflightCheck is a TCP endpoint that must be reachable before object servers start.
type PreflightCheck struct {
	Name    string `yaml:"name" validate:"required"`
	Address string `yaml:"address" validate:"required,hostname_port"`
}

// StatusAddress returns the host:port the status listener binds to.
func (c ServerConfig) StatusAddress() string {
	return joinHostPort(c.StatusHost, c.StatusPort)
}
