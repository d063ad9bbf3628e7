package orchestrator

import (
	"context"
	"net"
	"os"
	"sync"
	"time"

	"gdaserver/internal/commands"
	"gdaserver/internal/config"
	"gdaserver/internal/health"
	"gdaserver/internal/statusport"
	"gdaserver/pkg/logging"
)

// Config holds everything the orchestrator needs. It is built once at process
// entry by the caller.
type Config struct {
	Commands []commands.Command

	StatusAddress   string
	SettleDelay     time.Duration
	KillTimeout     time.Duration
	ShutdownTimeout time.Duration
	ReadyTimeout    time.Duration
	Preflight       []config.PreflightCheck

	// HealthReport answers STATUS from the registry. Without it STATUS
	// returns a WARNING report.
	HealthReport bool

	Notifier Notifier
	Releaser Releaser
}

// Orchestrator ties the sequencer, the status port and the shutdown
// coordinator together around one registry.
type Orchestrator struct {
	cfg         Config
	registry    *Registry
	sequencer   *Sequencer
	coordinator *Coordinator

	mu       sync.Mutex
	listener *statusport.Listener
}

// New creates an orchestrator. Nothing is started until Start.
func New(cfg Config) *Orchestrator {
	registry := NewRegistry()
	coordinator := newCoordinator(registry, cfg)

	return &Orchestrator{
		cfg:         cfg,
		registry:    registry,
		coordinator: coordinator,
		sequencer: &Sequencer{
			registry:     registry,
			cleanup:      coordinator.Stop,
			settleDelay:  cfg.SettleDelay,
			readyTimeout: cfg.ReadyTimeout,
			killTimeout:  cfg.KillTimeout,
			preflight:    cfg.Preflight,
			sleep:        time.Sleep,
			launch:       commands.InfrastructureCommand.Execute,
		},
	}
}

// Arm makes sigs trigger shutdown. Call it before Start so that a signal
// during startup still reaches cleanup.
func (o *Orchestrator) Arm(sigs ...os.Signal) {
	o.coordinator.Arm(sigs...)
}

// Start runs the startup sequence and then opens the status port. When Start
// returns an error cleanup has already run; do not call Stop for it.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.sequencer.Run(ctx, o.cfg.Commands); err != nil {
		return err
	}

	if _, objects := o.registry.Len(); objects == 0 {
		logging.Info("Orchestrator", "No object servers running, status port not opened")
		return nil
	}
	o.openStatusPort()
	return nil
}

// openStatusPort starts the status listener. Failing to bind is logged and
// the server keeps running without it.
func (o *Orchestrator) openStatusPort() {
	var provider health.Provider
	if o.cfg.HealthReport {
		provider = RegistryHealth(o.registry)
	}

	l, err := statusport.Listen(o.cfg.StatusAddress, provider)
	if err != nil {
		logging.Error("Orchestrator", err, "Status port not available")
		return
	}

	o.mu.Lock()
	o.listener = l
	o.mu.Unlock()

	l.Start()
	o.coordinator.AttachListener(l)
	logging.Info("Orchestrator", "Status port listening on %s", l.Addr())
}

// StatusAddr returns the bound status port address, or nil if the port is
// not open.
func (o *Orchestrator) StatusAddr() net.Addr {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listener == nil {
		return nil
	}
	return o.listener.Addr()
}

// Registry exposes the live handles.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Stop runs the shutdown routine. It is idempotent.
func (o *Orchestrator) Stop() {
	o.coordinator.Stop()
}

// Wait blocks until shutdown has completed.
func (o *Orchestrator) Wait() {
	o.coordinator.Wait()
}

// Done is closed once shutdown has completed.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.coordinator.Done()
}
