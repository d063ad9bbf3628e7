package statusport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"gdaserver/internal/health"
	"gdaserver/pkg/logging"

	"golang.org/x/time/rate"
)

// Listener accepts status port connections and serves the line protocol on
// each of them concurrently.
type Listener struct {
	ln       net.Listener
	provider health.Provider

	// healthMu serializes provider calls; providers need not be concurrency safe.
	healthMu sync.Mutex

	closed atomic.Bool
	done   chan struct{}

	// retry paces the accept loop after unexpected accept errors.
	retry *rate.Limiter

	conns sync.WaitGroup
}

// Listen binds addr. A nil provider makes STATUS answer with a WARNING report.
func Listen(addr string, provider health.Provider) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open status port on %s: %w", addr, err)
	}
	return &Listener{
		ln:       ln,
		provider: provider,
		done:     make(chan struct{}),
		retry:    rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Start runs the accept loop on its own goroutine.
func (l *Listener) Start() {
	go l.acceptLoop()
}

// Done is closed once the accept loop has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Closed reports whether Close has been called.
func (l *Listener) Closed() bool {
	return l.closed.Load()
}

// Close closes the listening socket, ending the accept loop. Open client
// connections are left to finish. Only the first call closes the socket.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := l.ln.Close()
	if err != nil {
		logging.Error("StatusPort", err, "Error closing status port")
		return err
	}
	logging.Debug("StatusPort", "Closed status port")
	return nil
}

// Wait blocks until every open connection has been closed by its client.
func (l *Listener) Wait() {
	l.conns.Wait()
}

func (l *Listener) acceptLoop() {
	defer close(l.done)

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.handleAcceptError(err) {
				return
			}
			continue
		}

		l.conns.Add(1)
		go func() {
			defer l.conns.Done()
			l.serve(conn)
		}()
	}
}

// handleAcceptError logs err and reports whether the loop must stop.
func (l *Listener) handleAcceptError(err error) bool {
	if l.closed.Load() {
		// Normal shutdown case. The port is closed while waiting to accept.
		logging.Debug("StatusPort", "Stopping accepting status port connections")
		return true
	}

	logging.Error("StatusPort", err, "Exception occurred while accepting status port connection")
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	_ = l.retry.Wait(context.Background())
	return false
}

func (l *Listener) report(ctx context.Context) health.Report {
	if l.provider == nil {
		logging.Warn("StatusPort", health.NoProviderMessage)
		return health.Unavailable()
	}

	l.healthMu.Lock()
	defer l.healthMu.Unlock()
	return l.provider.State(ctx)
}
