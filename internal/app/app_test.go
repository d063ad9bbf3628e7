package app

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gdaserver/internal/commands"
	"gdaserver/internal/config"
	"gdaserver/internal/environment"
	"gdaserver/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type memoryService struct {
	profile string
	stopped chan struct{}
}

func (s *memoryService) GetProfile() string { return s.profile }

func (s *memoryService) Shutdown(ctx context.Context) error {
	close(s.stopped)
	return nil
}

// withKind registers an extra object server kind for the duration of the test.
func withKind(t *testing.T, kind config.ObjectServerKind, k commands.Kind) {
	t.Helper()
	original := newFactories
	t.Cleanup(func() { newFactories = original })
	newFactories = func() *commands.Factories {
		f := original()
		require.NoError(t, f.Register(kind, k))
		return f
	}
}

func captureStdout(t *testing.T) *syncBuffer {
	t.Helper()
	original := stdout
	t.Cleanup(func() { stdout = original })
	buf := &syncBuffer{}
	stdout = buf
	return buf
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func serverConfig(port int, runDir string, objectServers string) string {
	return fmt.Sprintf(`statusHost: 127.0.0.1
statusPort: %d
runDir: %s
objectServers:
%s`, port, runDir, objectServers)
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvStatusPort, "")
	startupFile := filepath.Join(t.TempDir(), "startup")
	t.Setenv(environment.EnvStartupFile, startupFile)
	return startupFile
}

func TestNewApplication_ProfileSelection(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, serverConfig(19999, t.TempDir(), `  - profile: a
    command: ["a-server"]
  - profile: b
    command: ["b-server"]
`))

	t.Run("all profiles", func(t *testing.T) {
		app, err := NewApplication(NewConfig(path, nil, false))
		require.NoError(t, err)
		require.NotNil(t, app.config.ServerConfig)
		assert.Len(t, app.config.ServerConfig.ObjectServers, 2)
	})

	t.Run("selected profile", func(t *testing.T) {
		cfg := NewConfig(path, []string{"b"}, true)
		cfg.MetricsAddress = "127.0.0.1:0"
		app, err := NewApplication(cfg)
		require.NoError(t, err)
		require.Len(t, app.config.ServerConfig.ObjectServers, 1)
		assert.Equal(t, "b", app.config.ServerConfig.ObjectServers[0].Profile)
		assert.Equal(t, "127.0.0.1:0", app.config.ServerConfig.MetricsAddress)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := NewApplication(NewConfig(path, []string{"c"}, false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `profile "c" is not configured`)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewApplication(NewConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil, false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration from path")
	})
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	isolateEnv(t)
	out := captureStdout(t)

	svc := &memoryService{profile: "main", stopped: make(chan struct{})}
	withKind(t, "memory", func(def config.ObjectServerDefinition) (commands.Starter, error) {
		return func(ctx context.Context) (services.Service, error) { return svc, nil }, nil
	})

	port := freePort(t)
	runDir := filepath.Join(t.TempDir(), "run")
	path := writeConfig(t, serverConfig(port, runDir, `  - profile: main
    kind: memory
`))

	app, err := NewApplication(NewConfig(path, nil, false))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result := make(chan error, 1)
	go func() { result <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Server started")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), fmt.Sprintf("127.0.0.1:%d", port))

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err = fmt.Fprint(conn, "ping\n")
	require.NoError(t, err)
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "You sent: ping\n", reply)

	_, err = os.Stat(filepath.Join(runDir, "gdaserver.pid"))
	assert.NoError(t, err, "pid marker exists while running")

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	select {
	case <-svc.stopped:
	default:
		t.Error("object server was not shut down")
	}
	_, err = os.Stat(filepath.Join(runDir, "gdaserver.pid"))
	assert.True(t, os.IsNotExist(err), "pid marker removed on shutdown")
}

func TestRun_AbsentObjectServerWritesStartupFile(t *testing.T) {
	startupFile := isolateEnv(t)
	out := captureStdout(t)

	withKind(t, "absent", func(def config.ObjectServerDefinition) (commands.Starter, error) {
		return func(ctx context.Context) (services.Service, error) { return nil, nil }, nil
	})

	path := writeConfig(t, serverConfig(freePort(t), t.TempDir(), `  - profile: detector
    kind: absent
`))
	app, err := NewApplication(NewConfig(path, nil, false))
	require.NoError(t, err)

	assert.NoError(t, app.Run(context.Background()), "startup failures do not fail the process")

	data, err := os.ReadFile(startupFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "detector")
	assert.NotContains(t, out.String(), "Server started")
}

func TestRun_RunDirInUse(t *testing.T) {
	startupFile := isolateEnv(t)
	captureStdout(t)

	runDir := t.TempDir()
	held, err := environment.Initialize(runDir)
	require.NoError(t, err)
	defer held.Release()

	path := writeConfig(t, serverConfig(freePort(t), runDir, `  - profile: main
    command: ["object-server"]
`))
	app, err := NewApplication(NewConfig(path, nil, false))
	require.NoError(t, err)

	assert.NoError(t, app.Run(context.Background()))

	data, err := os.ReadFile(startupFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "in use by another server")
}

func TestRenderBanner(t *testing.T) {
	banner := renderBanner("Server started", "Status port: localhost:19999", "Object servers: main")

	assert.Contains(t, banner, "Server started")
	assert.Contains(t, banner, "Status port: localhost:19999")
	assert.Contains(t, banner, "Object servers: main")
	assert.Greater(t, strings.Count(banner, "\n"), 2, "banner is boxed")
}

func TestNewTerminalNotifier_NotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.Nil(t, newTerminalNotifier(f))
	assert.Nil(t, newTerminalNotifier(nil))
}
