package commands

import (
	"errors"
	"fmt"
)

var (
	// ErrAbsentHandle reports an object command that finished without error
	// but produced no service.
	ErrAbsentHandle = errors.New("object server did not produce a handle")

	// ErrOrphaned reports a killed process that did not exit within the wait bound.
	ErrOrphaned = errors.New("process did not exit after kill")

	// ErrRegistrySealed reports a registration attempted after shutdown began.
	ErrRegistrySealed = errors.New("shutdown in progress")
)

// LaunchError reports a command that could not be started.
type LaunchError struct {
	Command string // role or profile
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
