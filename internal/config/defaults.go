package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultStatusPort      = 19999
	DefaultSettleDelay     = 4 * time.Second
	DefaultKillTimeout     = 1 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultReadyTimeout    = 30 * time.Second
)

// GetDefaultConfig returns the built-in configuration. It starts no processes;
// infrastructure and object servers come from the user or project layers.
func GetDefaultConfig() ServerConfig {
	return ServerConfig{
		StatusPort:      DefaultStatusPort,
		SettleDelay:     DefaultSettleDelay,
		KillTimeout:     DefaultKillTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		ReadyTimeout:    DefaultReadyTimeout,
		RunDir:          filepath.Join(os.TempDir(), "gdaserver"),
		Preflight:       []PreflightCheck{},
		Infrastructure:  []InfrastructureDefinition{},
		ObjectServers:   []ObjectServerDefinition{},
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
