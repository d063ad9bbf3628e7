package orchestrator

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gdaserver/internal/commands"
	"gdaserver/internal/config"
	"gdaserver/internal/services"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recorder collects lifecycle events in the order they happen.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, e := range r.list() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// fakeProcess stands in for a spawned infrastructure process.
type fakeProcess struct {
	role  config.Role
	pid   int
	rec   *recorder
	stuck bool

	mu     sync.Mutex
	killed bool
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.killed
}

func (p *fakeProcess) Kill(timeout time.Duration) error {
	p.rec.add("kill %s", p.role)
	if p.stuck {
		time.Sleep(timeout)
		return fmt.Errorf("%w: %s (PID: %d) still running after %v", commands.ErrOrphaned, p.role, p.pid, timeout)
	}
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	return nil
}

// fakeService stands in for an object server.
type fakeService struct {
	profile  string
	rec      *recorder
	shutdown func() error
}

func (s *fakeService) GetProfile() string { return s.profile }

func (s *fakeService) Shutdown(ctx context.Context) error {
	s.rec.add("shutdown %s", s.profile)
	if s.shutdown != nil {
		return s.shutdown()
	}
	return nil
}

// checkedService also reports its health.
type checkedService struct {
	fakeService
	status services.HealthStatus
	err    error
}

func (s *checkedService) CheckHealth(ctx context.Context) (services.HealthStatus, error) {
	return s.status, s.err
}

type countingReleaser struct {
	calls atomic.Int32
}

func (r *countingReleaser) Release() error {
	r.calls.Add(1)
	return nil
}

type countingNotifier struct {
	calls atomic.Int32
}

func (n *countingNotifier) NotifyShutdown() {
	n.calls.Add(1)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// fixture is an orchestrator whose infrastructure launches and settle pause
// are faked.
type fixture struct {
	o        *Orchestrator
	rec      *recorder
	releaser *countingReleaser
	notifier *countingNotifier

	sleeps    atomic.Int32
	launched  atomic.Int32
	failRole  config.Role
	stuckRole config.Role
}

func newFixture(t *testing.T, cmds []commands.Command, mutate ...func(*Config)) *fixture {
	t.Helper()

	f := &fixture{
		rec:      &recorder{},
		releaser: &countingReleaser{},
		notifier: &countingNotifier{},
	}

	cfg := Config{
		Commands:        cmds,
		StatusAddress:   "127.0.0.1:0",
		SettleDelay:     config.DefaultSettleDelay,
		KillTimeout:     50 * time.Millisecond,
		ShutdownTimeout: time.Second,
		ReadyTimeout:    time.Second,
		HealthReport:    true,
		Notifier:        f.notifier,
		Releaser:        f.releaser,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	f.o = New(cfg)
	f.o.sequencer.sleep = func(time.Duration) {
		f.sleeps.Add(1)
		f.rec.add("settle")
	}
	f.o.sequencer.launch = func(cmd commands.InfrastructureCommand) (commands.ProcessHandle, error) {
		f.rec.add("start %s", cmd.Role)
		if cmd.Role == f.failRole {
			return nil, &commands.LaunchError{Command: string(cmd.Role), Err: fmt.Errorf("executable not found")}
		}

		pid := 1000 + int(f.launched.Add(1))
		return &fakeProcess{role: cmd.Role, pid: pid, rec: f.rec, stuck: cmd.Role == f.stuckRole}, nil
	}

	t.Cleanup(f.o.Stop)
	return f
}

// service returns a starter that brings up a fakeService.
func (f *fixture) service(profile string) commands.Starter {
	return f.serviceWith(profile, nil)
}

func (f *fixture) serviceWith(profile string, shutdown func() error) commands.Starter {
	return func(ctx context.Context) (services.Service, error) {
		f.rec.add("start %s", profile)
		return &fakeService{profile: profile, rec: f.rec, shutdown: shutdown}, nil
	}
}

// absent returns a starter whose server does not come up.
func (f *fixture) absent(profile string) commands.Starter {
	return func(ctx context.Context) (services.Service, error) {
		f.rec.add("start %s", profile)
		return nil, nil
	}
}

func infra(role config.Role) commands.InfrastructureCommand {
	return commands.InfrastructureCommand{Role: role, Argv: []string{string(role) + "-server"}}
}

func object(profile string, start commands.Starter) commands.ObjectCommand {
	return commands.ObjectCommand{Profile: profile, Start: start}
}

// closedAddress returns a local address nothing listens on.
func closedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

// mockReleaser records Release calls.
type mockReleaser struct {
	mock.Mock
}

func (m *mockReleaser) Release() error {
	args := m.Called()
	return args.Error(0)
}

// mockNotifier records NotifyShutdown calls.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyShutdown() {
	m.Called()
}
