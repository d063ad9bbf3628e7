package app

import (
	"gdaserver/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Configuration source; empty means the layered default locations
	ConfigPath string

	// Object server profiles to start; empty starts all of them
	Profiles []string

	// Debug settings
	Debug bool

	// Overrides the metricsAddress setting when non-empty
	MetricsAddress string

	// Release version, logged at startup
	Version string

	// Server configuration, set once loaded
	ServerConfig *config.ServerConfig
}

// NewConfig creates a new application configuration
func NewConfig(configPath string, profiles []string, debug bool) *Config {
	return &Config{
		ConfigPath: configPath,
		Profiles:   profiles,
		Debug:      debug,
	}
}
