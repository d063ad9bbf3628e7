package app

import (
	"fmt"

	"gdaserver/internal/commands"
	"gdaserver/internal/environment"
	"gdaserver/internal/metrics"
	"gdaserver/internal/orchestrator"
	"gdaserver/pkg/logging"
)

// For mocking in tests
var newFactories = commands.NewFactories

// Services holds the collaborators built for one server run
type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Environment  *environment.Environment
	Metrics      *metrics.Server
}

// InitializeServices builds the command list, claims the run directory and
// creates the orchestrator. Nothing is started yet.
func InitializeServices(cfg *Config, notifier orchestrator.Notifier) (*Services, error) {
	serverCfg := cfg.ServerConfig
	if serverCfg == nil {
		return nil, fmt.Errorf("server configuration not loaded")
	}

	cmds, err := commands.FromConfig(*serverCfg, newFactories())
	if err != nil {
		return nil, err
	}

	env, err := environment.Initialize(serverCfg.RunDir)
	if err != nil {
		return nil, err
	}
	logging.Info("Bootstrap", "Run %s using %s", env.RunID(), env.Dir())

	orch := orchestrator.New(orchestrator.Config{
		Commands:        cmds,
		StatusAddress:   serverCfg.StatusAddress(),
		SettleDelay:     serverCfg.SettleDelay,
		KillTimeout:     serverCfg.KillTimeout,
		ShutdownTimeout: serverCfg.ShutdownTimeout,
		ReadyTimeout:    serverCfg.ReadyTimeout,
		Preflight:       serverCfg.Preflight,
		HealthReport:    serverCfg.HealthReport,
		Notifier:        notifier,
		Releaser:        env,
	})

	services := &Services{
		Orchestrator: orch,
		Environment:  env,
	}

	if serverCfg.MetricsAddress != "" {
		m, err := metrics.Listen(serverCfg.MetricsAddress)
		if err != nil {
			logging.Error("Bootstrap", err, "Metrics endpoint not available")
		} else {
			services.Metrics = m
		}
	}

	return services, nil
}

// Close shuts down the metrics endpoint, if any.
func (s *Services) Close() {
	if s.Metrics == nil {
		return
	}
	if err := s.Metrics.Close(); err != nil {
		logging.Debug("Bootstrap", "Metrics endpoint close: %v", err)
	}
}
