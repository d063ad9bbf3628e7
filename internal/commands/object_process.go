package commands

import (
	"context"
	"fmt"
	"time"

	"gdaserver/internal/config"
	"gdaserver/internal/services"
	"gdaserver/pkg/logging"

	"golang.org/x/sys/unix"
)

// startupAbortTimeout bounds the kill of a child whose bring-up was cancelled.
const startupAbortTimeout = time.Second

// execObjectServer is an object server running as a child process.
type execObjectServer struct {
	profile string
	proc    *Process
}

// newExecStarter returns a Starter that runs def.Command as a child process.
// If the child exits within def.StartupGrace the server is reported absent.
func newExecStarter(def config.ObjectServerDefinition) (Starter, error) {
	if len(def.Command) == 0 {
		return nil, fmt.Errorf("object server %s has no command", def.Profile)
	}

	return func(ctx context.Context) (services.Service, error) {
		proc, err := startProcess(def.Profile, def.Command, def.Env, def.Dir)
		if err != nil {
			return nil, err
		}

		if def.StartupGrace > 0 {
			timer := time.NewTimer(def.StartupGrace)
			defer timer.Stop()

			select {
			case <-proc.Done():
				logging.Warn("ObjectServer", "Object server %s (PID: %d) exited during startup: %v", def.Profile, proc.PID(), proc.Err())
				return nil, nil
			case <-ctx.Done():
				_ = proc.Kill(startupAbortTimeout)
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		return &execObjectServer{profile: def.Profile, proc: proc}, nil
	}, nil
}

func (s *execObjectServer) GetProfile() string {
	return s.profile
}

// Shutdown sends SIGTERM and waits for the child to exit. If ctx ends first
// the child is killed.
func (s *execObjectServer) Shutdown(ctx context.Context) error {
	if s.proc.Exited() {
		return nil
	}

	if err := s.proc.Signal(unix.SIGTERM); err != nil {
		logging.Debug("ObjectServer", "SIGTERM to %s failed: %v", s.profile, err)
	}

	select {
	case <-s.proc.Done():
		return nil
	case <-ctx.Done():
		if err := s.proc.Kill(startupAbortTimeout); err != nil {
			return fmt.Errorf("object server %s ignored SIGTERM: %w", s.profile, err)
		}
		return fmt.Errorf("object server %s ignored SIGTERM and was killed: %w", s.profile, ctx.Err())
	}
}

// CheckHealth implements services.HealthChecker.
func (s *execObjectServer) CheckHealth(ctx context.Context) (services.HealthStatus, error) {
	if s.proc.Alive() {
		return services.HealthHealthy, nil
	}
	return services.HealthUnhealthy, fmt.Errorf("process %d exited: %v", s.proc.PID(), s.proc.Err())
}
