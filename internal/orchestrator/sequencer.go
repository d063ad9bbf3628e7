package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gdaserver/internal/commands"
	"gdaserver/internal/config"
	"gdaserver/internal/metrics"
	"gdaserver/internal/services"
	"gdaserver/pkg/logging"
)

// Sequencer starts the command list: the infrastructure prefix in role order,
// one settle pause, then the object servers in list order. The first failure
// ends the sequence and runs cleanup.
type Sequencer struct {
	registry *Registry
	cleanup  func()

	settleDelay  time.Duration
	readyTimeout time.Duration
	killTimeout  time.Duration
	preflight    []config.PreflightCheck

	// For mocking in tests
	sleep  func(time.Duration)
	launch func(commands.InfrastructureCommand) (commands.ProcessHandle, error)
}

// Run executes cmds. On success every command has a handle in the registry.
// On failure cleanup has already run once when Run returns, and the error is
// a *commands.LaunchError or wraps commands.ErrAbsentHandle. If shutdown
// starts while Run is still going, the error wraps commands.ErrRegistrySealed.
func (s *Sequencer) Run(ctx context.Context, cmds []commands.Command) error {
	infra, objects, err := commands.Split(cmds)
	if err != nil {
		return s.fail(err)
	}

	probeCtx, cancel := s.untilSealed(ctx)
	defer cancel()

	if err := s.startInfrastructure(probeCtx, infra); err != nil {
		return s.fail(err)
	}
	if err := s.checkPreflight(probeCtx); err != nil {
		return s.fail(err)
	}
	return s.startObjects(ctx, objects)
}

// untilSealed derives a context that is cancelled once shutdown starts, so
// pending probes give up.
func (s *Sequencer) untilSealed(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.registry.Sealing():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (s *Sequencer) startInfrastructure(ctx context.Context, infra []commands.InfrastructureCommand) error {
	if len(infra) == 0 {
		return nil
	}
	started := time.Now()

	for _, cmd := range infra {
		if err := s.interrupted(string(cmd.Role) + " not started"); err != nil {
			return err
		}

		logging.Info("Sequencer", "%s server starting", cmd.Role)
		handle, err := s.launch(cmd)
		if err != nil {
			metrics.StartupFailed(metrics.FailureLaunch)
			return err
		}
		if err := s.registry.AddInfrastructure(cmd.Role, handle); err != nil {
			_ = handle.Kill(s.killTimeout)
			return err
		}
		metrics.CommandStarted(metrics.TierInfrastructure)
		logging.Info("Sequencer", "%s server started (PID: %d)", cmd.Role, handle.PID())
	}

	if s.settleDelay > 0 {
		logging.Debug("Sequencer", "Waiting %v for infrastructure to settle", s.settleDelay)
		s.sleep(s.settleDelay)
	}
	if err := s.interrupted("infrastructure did not settle"); err != nil {
		return err
	}

	for _, cmd := range infra {
		if cmd.ReadyAddress == "" {
			continue
		}
		if err := s.interrupted(string(cmd.Role) + " readiness not checked"); err != nil {
			return err
		}
		if err := waitReachable(ctx, string(cmd.Role), cmd.ReadyAddress, s.readyTimeout); err != nil {
			if sealed := s.interrupted(string(cmd.Role) + " readiness check abandoned"); sealed != nil {
				return sealed
			}
			metrics.StartupFailed(metrics.FailureLaunch)
			return &commands.LaunchError{Command: string(cmd.Role), Err: err}
		}
	}

	metrics.ObserveStage("infrastructure", time.Since(started))
	return nil
}

func (s *Sequencer) checkPreflight(ctx context.Context) error {
	for _, check := range s.preflight {
		if err := s.interrupted(check.Name + " not checked"); err != nil {
			return err
		}
		if err := waitReachable(ctx, check.Name, check.Address, s.readyTimeout); err != nil {
			if sealed := s.interrupted(check.Name + " check abandoned"); sealed != nil {
				return sealed
			}
			metrics.StartupFailed(metrics.FailureLaunch)
			return &commands.LaunchError{
				Command: check.Name,
				Err:     fmt.Errorf("no %s service is available: %w", check.Name, err),
			}
		}
	}
	return nil
}

func (s *Sequencer) startObjects(ctx context.Context, objects []commands.ObjectCommand) error {
	started := time.Now()

	for _, cmd := range objects {
		if err := s.interrupted(cmd.Profile + " not started"); err != nil {
			return s.fail(err)
		}

		logging.Info("Sequencer", "Object server %s starting", cmd.Profile)
		svc, err := cmd.Execute(ctx)
		if err != nil {
			metrics.StartupFailed(metrics.FailureLaunch)
			return s.fail(err)
		}
		if svc == nil {
			metrics.StartupFailed(metrics.FailureAbsent)
			logging.Warn("Sequencer", "Object server %s did not start, stopping server", cmd.Profile)
			s.cleanup()
			return fmt.Errorf("%w: %s", commands.ErrAbsentHandle, cmd.Profile)
		}

		if err := s.registry.AddObject(cmd.Profile, svc); err != nil {
			if errors.Is(err, commands.ErrRegistrySealed) {
				shutdownDetached(cmd.Profile, svc)
			}
			return s.fail(err)
		}
		metrics.CommandStarted(metrics.TierObject)
		logging.Info("Sequencer", "Server started (profile %s)", cmd.Profile)
	}

	metrics.ObserveStage("objects", time.Since(started))
	return nil
}

// interrupted returns an error wrapping commands.ErrRegistrySealed once
// shutdown has started.
func (s *Sequencer) interrupted(what string) error {
	if s.registry.Sealed() {
		return fmt.Errorf("%s: %w", what, commands.ErrRegistrySealed)
	}
	return nil
}

// fail logs err and runs cleanup.
func (s *Sequencer) fail(err error) error {
	if errors.Is(err, commands.ErrRegistrySealed) {
		logging.Info("Sequencer", "Startup interrupted: %v", err)
	} else {
		logging.Error("Sequencer", err, "Server startup failed")
	}
	s.cleanup()
	return err
}

// shutdownDetached stops an object server that came up after shutdown had
// already taken over the registry.
func shutdownDetached(profile string, svc services.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		logging.Error("Sequencer", err, "Failed to stop object server %s", profile)
	}
}
