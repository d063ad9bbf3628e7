package app

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gdaserver/internal/config"
	"gdaserver/internal/environment"
	"gdaserver/pkg/logging"
)

// For mocking in tests
var (
	loadConfig         = config.LoadConfig
	loadConfigFromPath = config.LoadConfigFromPath
)

// Application is the main application structure that bootstraps and runs the server
type Application struct {
	config *Config
}

// NewApplication configures logging and loads the server configuration
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	logging.InitForCLI(appLogLevel, os.Stdout)

	serverCfg, err := loadServerConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MetricsAddress != "" {
		serverCfg.MetricsAddress = cfg.MetricsAddress
	}

	serverCfg, err = config.SelectProfiles(serverCfg, cfg.Profiles)
	if err != nil {
		logging.Error("Bootstrap", err, "Invalid profile selection")
		return nil, err
	}
	cfg.ServerConfig = &serverCfg

	return &Application{config: cfg}, nil
}

func loadServerConfig(cfg *Config) (config.ServerConfig, error) {
	if cfg.ConfigPath != "" {
		serverCfg, err := loadConfigFromPath(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigPath)
			return config.ServerConfig{}, fmt.Errorf("failed to load configuration from path %s: %w", cfg.ConfigPath, err)
		}
		logging.Info("Bootstrap", "Loaded configuration from custom path: %s", cfg.ConfigPath)
		return serverCfg, nil
	}

	serverCfg, err := loadConfig()
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return config.ServerConfig{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Info("Bootstrap", "Loaded configuration using layered approach")
	return serverCfg, nil
}

// Run starts the server and blocks until it has shut down. Startup failures
// are reported through the log and the startup file, not the return value.
func (a *Application) Run(ctx context.Context) error {
	logStartup(a.config.Version)
	return runServer(ctx, a.config)
}

func logStartup(version string) {
	if version == "" {
		version = "dev"
	}
	logging.Info("Bootstrap", "Starting GDA server %s", version)
	logging.Info("Bootstrap", "Go runtime: %s", runtime.Version())
	logging.Info("Bootstrap", "Arguments: %s", strings.Join(os.Args[1:], " "))
	logging.Debug("Bootstrap", "Startup failures are written to %s", environment.DescribeStartupFile())
}
