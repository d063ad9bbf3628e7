package statusport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"gdaserver/internal/health"
	"gdaserver/internal/metrics"
	"gdaserver/pkg/logging"

	"golang.org/x/sys/unix"
)

// serve answers one request line at a time until the client closes its side.
func (l *Listener) serve(conn net.Conn) {
	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := bufio.NewReader(conn)
	out := bufio.NewWriter(conn)

	for {
		line, readErr := in.ReadString('\n')
		if line != "" {
			reply := l.respond(ctx, strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"))
			if _, err := out.WriteString(reply + "\n"); err != nil {
				l.handleConnError(err)
				return
			}
			if err := out.Flush(); err != nil {
				l.handleConnError(err)
				return
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				l.handleConnError(readErr)
			}
			return
		}
	}
}

// respond computes the reply line for one request line.
func (l *Listener) respond(ctx context.Context, line string) string {
	if !strings.EqualFold(line, health.Command) {
		metrics.StatusRequest(metrics.RequestEcho)
		return fmt.Sprintf("You sent: %s", line)
	}

	metrics.StatusRequest(metrics.RequestStatus)
	data, err := l.report(ctx).Marshal()
	if err != nil {
		logging.Error("StatusPort", err, "Failed to serialize health report")
		data, _ = health.Report{State: health.StateError, Message: "health report could not be serialized"}.Marshal()
	}
	return string(data)
}

// handleConnError logs a connection I/O error. Errors caused by the peer
// going away are expected and only logged at debug level.
func (l *Listener) handleConnError(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || isConnReset(err) {
		logging.Debug("StatusPort", "Status port client went away: %v", err)
		return
	}
	logging.Error("StatusPort", err, "Status port connection failed")
}

func isConnReset(err error) bool {
	return errors.Is(err, unix.ECONNRESET) || errors.Is(err, unix.EPIPE)
}
