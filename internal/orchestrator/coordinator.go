package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"gdaserver/internal/commands"
	"gdaserver/internal/metrics"
	"gdaserver/pkg/logging"
)

// Notifier is told that shutdown is starting, e.g. an attached terminal.
type Notifier interface {
	NotifyShutdown()
}

// Releaser releases process-wide state established at startup.
type Releaser interface {
	Release() error
}

// Coordinator runs the stop routine exactly once, whether it is triggered by
// a termination signal, a startup failure or an explicit Stop.
type Coordinator struct {
	registry        *Registry
	notifier        Notifier
	releaser        Releaser
	killTimeout     time.Duration
	shutdownTimeout time.Duration

	mu        sync.Mutex
	listeners []io.Closer
	stopping  bool

	once sync.Once
	done chan struct{}
}

func newCoordinator(registry *Registry, cfg Config) *Coordinator {
	return &Coordinator{
		registry:        registry,
		notifier:        cfg.Notifier,
		releaser:        cfg.Releaser,
		killTimeout:     cfg.KillTimeout,
		shutdownTimeout: cfg.ShutdownTimeout,
		done:            make(chan struct{}),
	}
}

// Arm makes any of sigs trigger Stop. The handler is removed once the
// coordinator has stopped.
func (c *Coordinator) Arm(sigs ...os.Signal) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logging.Info("Coordinator", "Received %v, shutting down", sig)
			c.Stop()
		case <-c.done:
		}
	}()
}

// AttachListener registers a listener to be closed first during shutdown.
// If shutdown has already started it is closed right away.
func (c *Coordinator) AttachListener(l io.Closer) {
	c.mu.Lock()
	if !c.stopping {
		c.listeners = append(c.listeners, l)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := l.Close(); err != nil {
		logging.Error("Coordinator", err, "Failed to close listener")
	}
}

// Stop tears everything down. It is safe to call concurrently and more than
// once; every call returns after the first one has finished.
func (c *Coordinator) Stop() {
	c.once.Do(c.stop)
}

// Done is closed when the stop routine has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the stop routine has finished.
func (c *Coordinator) Wait() {
	<-c.done
}

func (c *Coordinator) stop() {
	defer close(c.done)

	started := time.Now()
	logging.Info("Coordinator", "Stopping server")

	c.guard("notify", c.notify)
	c.guard("close listeners", c.closeListeners)

	infra, objects := c.registry.Seal()
	c.shutdownObjects(objects)
	c.killInfrastructure(infra)

	c.guard("release environment", c.release)

	metrics.ObserveStage("shutdown", time.Since(started))
	logging.Info("Coordinator", "Server stopped")
}

func (c *Coordinator) notify() {
	if c.notifier != nil {
		c.notifier.NotifyShutdown()
	}
}

func (c *Coordinator) closeListeners() {
	c.mu.Lock()
	c.stopping = true
	listeners := c.listeners
	c.listeners = nil
	c.mu.Unlock()

	for _, l := range listeners {
		if err := l.Close(); err != nil {
			logging.Error("Coordinator", err, "Failed to close listener")
		}
	}
}

// shutdownObjects stops object servers in reverse start order. A failing
// server does not stop the others.
func (c *Coordinator) shutdownObjects(objects []ObjectEntry) {
	for i := len(objects) - 1; i >= 0; i-- {
		entry := objects[i]
		logging.Debug("Coordinator", "Stopping object server %s", entry.Profile)

		if err := c.shutdownObject(entry); err != nil {
			logging.Error("Coordinator", err, "Failed to stop object server %s", entry.Profile)
			metrics.TornDown(metrics.TierObject, metrics.OutcomeError)
			continue
		}
		metrics.TornDown(metrics.TierObject, metrics.OutcomeOK)
		logging.Info("Coordinator", "Object server %s stopped", entry.Profile)
	}
}

func (c *Coordinator) shutdownObject(entry ObjectEntry) (err error) {
	ctx := context.Background()
	if c.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.shutdownTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during shutdown: %v", r)
		}
	}()
	return entry.Service.Shutdown(ctx)
}

// killInfrastructure kills infrastructure processes in reverse start order.
// A process that outlives the kill wait is reported and left behind.
func (c *Coordinator) killInfrastructure(infra []InfrastructureEntry) {
	for i := len(infra) - 1; i >= 0; i-- {
		entry := infra[i]

		err := c.killProcess(entry)
		switch {
		case err == nil:
			metrics.TornDown(metrics.TierInfrastructure, metrics.OutcomeOK)
			logging.Info("Coordinator", "%s server stopped", entry.Role)
		case errors.Is(err, commands.ErrOrphaned):
			metrics.TornDown(metrics.TierInfrastructure, metrics.OutcomeOrphaned)
			logging.Warn("Coordinator", "Possible orphaned process for %s server: %v", entry.Role, err)
		default:
			metrics.TornDown(metrics.TierInfrastructure, metrics.OutcomeError)
			logging.Error("Coordinator", err, "Failed to stop %s server", entry.Role)
		}
	}
}

func (c *Coordinator) killProcess(entry InfrastructureEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during kill: %v", r)
		}
	}()
	return entry.Handle.Kill(c.killTimeout)
}

func (c *Coordinator) release() {
	if c.releaser == nil {
		return
	}
	if err := c.releaser.Release(); err != nil {
		logging.Error("Coordinator", err, "Failed to release environment")
	}
}

// guard runs one step of the stop routine, logging a panic instead of
// letting it end the routine.
func (c *Coordinator) guard(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Coordinator", fmt.Errorf("%v", r), "Shutdown step %q panicked", step)
		}
	}()
	fn()
}
