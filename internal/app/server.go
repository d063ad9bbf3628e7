package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"gdaserver/internal/commands"
	"gdaserver/internal/environment"
	"gdaserver/pkg/logging"
)

// For mocking in tests
var stdout io.Writer = os.Stdout

// runServer is the controlling thread: start everything, print the banner and
// block until shutdown has finished. It returns nil even when startup fails.
func runServer(ctx context.Context, cfg *Config) error {
	services, err := InitializeServices(cfg, newTerminalNotifier(os.Stdout))
	if err != nil {
		logging.Error("Bootstrap", err, "Server startup failed")
		environment.WriteStartupError(err)
		return nil
	}
	defer services.Close()

	orch := services.Orchestrator
	orch.Arm(syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logging.Info("Bootstrap", "Context cancelled, shutting down")
			orch.Stop()
		case <-orch.Done():
		}
	}()

	if err := orch.Start(ctx); err != nil {
		// Cleanup has already run.
		if !errors.Is(err, commands.ErrRegistrySealed) {
			environment.WriteStartupError(err)
		}
		return nil
	}

	fmt.Fprintln(stdout, startedBanner(cfg, services))
	logging.Info("Bootstrap", "Server started. Press Ctrl+C to stop.")

	orch.Wait()
	return nil
}

func startedBanner(cfg *Config, services *Services) string {
	statusPort := "not open"
	if addr := services.Orchestrator.StatusAddr(); addr != nil {
		statusPort = addr.String()
	}

	profiles := make([]string, 0, len(cfg.ServerConfig.ObjectServers))
	for _, def := range cfg.ServerConfig.ObjectServers {
		profiles = append(profiles, def.Profile)
	}
	if len(profiles) == 0 {
		profiles = append(profiles, "none")
	}

	return renderBanner("Server started",
		"Status port:    "+statusPort,
		"Object servers: "+strings.Join(profiles, ", "),
		"Run:            "+services.Environment.RunID(),
	)
}
