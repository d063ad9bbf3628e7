package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"gdaserver/pkg/logging"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// For mocking in tests
var execCommand = exec.Command

// pipeDrainDelay bounds how long Wait keeps reading output after the process
// exits, in case a grandchild still holds the pipes open.
const pipeDrainDelay = 500 * time.Millisecond

// Process is a child process started in its own process group.
type Process struct {
	label string
	cmd   *exec.Cmd
	pid   int

	done    chan struct{}
	mu      sync.Mutex
	waitErr error
}

// startProcess starts argv with the current environment plus env. Output lines
// are relayed to the log under label.
func startProcess(label string, argv []string, env map[string]string, dir string) (*Process, error) {
	cmd := execCommand(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Dir = dir
	cmd.Env = os.Environ() // Inherit current environment
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdout = &lineRelay{label: label, stream: "STDOUT", log: logging.Debug}
	cmd.Stderr = &lineRelay{label: label, stream: "STDERR", log: logging.Info}
	cmd.WaitDelay = pipeDrainDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process for %s (%v): %w", label, argv, err)
	}

	p := &Process{
		label: label,
		cmd:   cmd,
		pid:   cmd.Process.Pid,
		done:  make(chan struct{}),
	}
	logging.Debug("Process", "Started %s (PID: %d): %v", label, p.pid, argv)

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()
		close(p.done)

		if err != nil {
			logging.Debug("Process", "%s (PID: %d) exited: %v", label, p.pid, err)
		} else {
			logging.Debug("Process", "%s (PID: %d) exited", label, p.pid)
		}
	}()

	return p, nil
}

// PID returns the process id.
func (p *Process) PID() int {
	return p.pid
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Err returns the wait error once the process has exited.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Alive reports whether the process is still running.
func (p *Process) Alive() bool {
	if p.Exited() {
		return false
	}
	exists, err := process.PidExists(int32(p.pid))
	return err == nil && exists
}

// Signal sends sig to the process group.
func (p *Process) Signal(sig syscall.Signal) error {
	if p.Exited() {
		return nil
	}
	if err := unix.Kill(-p.pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return p.cmd.Process.Signal(sig)
	}
	return nil
}

// Kill sends SIGKILL to the process group and to any descendant that left
// it, then waits up to timeout for the process to exit.
func (p *Process) Kill(timeout time.Duration) error {
	if p.Exited() {
		return nil
	}

	strays := descendants(p.pid)
	if err := p.Signal(unix.SIGKILL); err != nil {
		logging.Debug("Process", "Failed to signal %s (PID: %d): %v", p.label, p.pid, err)
	}
	for _, child := range strays {
		if running, _ := child.IsRunning(); running {
			_ = child.Kill()
		}
	}

	return p.wait(timeout)
}

func (p *Process) wait(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s (PID: %d) still running after %v", ErrOrphaned, p.label, p.pid, timeout)
	}
}

// descendants lists the transitive children of pid. Errors yield a partial list.
func descendants(pid int) []*process.Process {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}

	var out []*process.Process
	queue := []*process.Process{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		children, err := current.Children()
		if err != nil {
			continue
		}
		out = append(out, children...)
		queue = append(queue, children...)
	}
	return out
}

// lineRelay forwards complete output lines of a child process to the log.
type lineRelay struct {
	label  string
	stream string
	log    func(subsystem string, messageFmt string, args ...interface{})

	mu  sync.Mutex
	buf []byte
}

func (r *lineRelay) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, b...)
	for {
		i := bytes.IndexByte(r.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(r.buf[:i], "\r")
		r.log("Process", "[%s %s] %s", r.label, r.stream, line)
		r.buf = r.buf[i+1:]
	}
	return len(b), nil
}
