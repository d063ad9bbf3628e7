package orchestrator

import (
	"context"
	"fmt"
	"net"
	"time"

	"gdaserver/pkg/logging"

	"github.com/cenkalti/backoff/v5"
)

// dialTimeout bounds a single connection attempt of a probe.
const dialTimeout = time.Second

// waitReachable polls addr until it accepts a TCP connection or timeout has
// elapsed. A timeout of zero means a single attempt.
func waitReachable(ctx context.Context, name, addr string, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Debug("Probe", "%s not reachable on %s, retrying in %v: %v", name, addr, next, err)
		}),
	}
	if timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(timeout))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		dialer := net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return struct{}{}, err
		}
		_ = conn.Close()
		return struct{}{}, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("%s not reachable on %s within %v: %w", name, addr, timeout, err)
	}

	logging.Debug("Probe", "%s is reachable on %s", name, addr)
	return nil
}
