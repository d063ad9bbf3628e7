package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gdaserver/pkg/logging"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	lockFileName = "gdaserver.lock"
	pidFileName  = "gdaserver.pid"
)

// Environment is the process-wide state established at startup: a locked run
// directory and a pid marker identifying this server session.
type Environment struct {
	dir   string
	runID string
	lock  *flock.Flock

	releaseOnce sync.Once
	releaseErr  error
}

// Initialize creates dir if needed, locks it and writes the pid marker.
// It fails if another server holds the lock.
func Initialize(dir string) (*Environment, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", dir, err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock run directory %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("run directory %s is in use by another server", dir)
	}

	env := &Environment{
		dir:   dir,
		runID: uuid.NewString(),
		lock:  lock,
	}

	marker := strconv.Itoa(os.Getpid()) + " " + env.runID + "\n"
	if err := os.WriteFile(env.pidFile(), []byte(marker), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to write pid marker: %w", err)
	}

	logging.Debug("Environment", "Initialized run directory %s (run %s)", dir, env.runID)
	return env, nil
}

// RunID identifies this server session.
func (e *Environment) RunID() string {
	return e.runID
}

// Dir returns the run directory.
func (e *Environment) Dir() string {
	return e.dir
}

func (e *Environment) pidFile() string {
	return filepath.Join(e.dir, pidFileName)
}

// Release removes the pid marker and unlocks the run directory. Only the
// first call does any work.
func (e *Environment) Release() error {
	e.releaseOnce.Do(func() {
		if err := os.Remove(e.pidFile()); err != nil && !os.IsNotExist(err) {
			e.releaseErr = fmt.Errorf("failed to remove pid marker: %w", err)
		}
		if err := e.lock.Unlock(); err != nil && e.releaseErr == nil {
			e.releaseErr = fmt.Errorf("failed to unlock run directory: %w", err)
		}
		logging.Debug("Environment", "Released run directory %s", e.dir)
	})
	return e.releaseErr
}
