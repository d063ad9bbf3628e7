package commands

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"gdaserver/internal/config"
	"gdaserver/internal/services"
)

// Role names an infrastructure process.
type Role = config.Role

// Command is something the sequencer can start: either an
// InfrastructureCommand or an ObjectCommand.
type Command interface {
	// Name returns the role of an infrastructure command or the profile of an
	// object command.
	Name() string

	isCommand()
}

// ProcessHandle is a started infrastructure process.
type ProcessHandle interface {
	PID() int
	// Alive reports whether the process is still running.
	Alive() bool
	// Kill terminates the process forcibly and waits up to timeout for it to
	// exit. A timeout yields ErrOrphaned.
	Kill(timeout time.Duration) error
}

// InfrastructureCommand spawns a foundational backend process.
type InfrastructureCommand struct {
	Role         Role
	Argv         []string
	Env          map[string]string
	Dir          string
	ReadyAddress string
}

func (c InfrastructureCommand) Name() string { return string(c.Role) }
func (InfrastructureCommand) isCommand()     {}

// Execute spawns the process and returns as soon as it is running. It does
// not wait for the process to become reachable.
func (c InfrastructureCommand) Execute() (ProcessHandle, error) {
	if len(c.Argv) == 0 {
		return nil, &LaunchError{Command: c.Name(), Err: fmt.Errorf("empty command")}
	}
	proc, err := startProcess(c.Name(), c.Argv, c.Env, c.Dir)
	if err != nil {
		return nil, &LaunchError{Command: c.Name(), Err: err}
	}
	return proc, nil
}

// Starter brings an object server up. Returning a nil Service with a nil
// error signals that the server did not come up without it being an error.
// A nil pointer wrapped in a non-nil Service counts as nil.
type Starter func(ctx context.Context) (services.Service, error)

// ObjectCommand brings up a leaf service keyed by profile.
type ObjectCommand struct {
	Profile string
	Start   Starter
}

func (c ObjectCommand) Name() string { return c.Profile }
func (ObjectCommand) isCommand()     {}

// Execute runs the starter. A nil Service with a nil error means the server
// is absent. Errors and panics are reported as *LaunchError.
func (c ObjectCommand) Execute(ctx context.Context) (svc services.Service, err error) {
	if c.Start == nil {
		return nil, &LaunchError{Command: c.Name(), Err: fmt.Errorf("no starter")}
	}

	defer func() {
		if r := recover(); r != nil {
			svc = nil
			err = &LaunchError{Command: c.Name(), Err: fmt.Errorf("panic during bring-up: %v", r)}
		}
	}()

	svc, err = c.Start(ctx)
	if err != nil {
		return nil, &LaunchError{Command: c.Name(), Err: err}
	}
	if isNil(svc) {
		return nil, nil
	}
	return svc, nil
}

// isNil reports whether svc is nil or holds a nil pointer, map, slice, func
// or channel.
func isNil(svc services.Service) bool {
	if svc == nil {
		return true
	}
	v := reflect.ValueOf(svc)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Split separates cmds into the infrastructure prefix and the object-tier
// suffix. Infrastructure commands are returned in fixed role order. An
// infrastructure command after an object command is rejected.
func Split(cmds []Command) ([]InfrastructureCommand, []ObjectCommand, error) {
	var infra []InfrastructureCommand
	var objects []ObjectCommand

	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case InfrastructureCommand:
			if len(objects) > 0 {
				return nil, nil, fmt.Errorf("infrastructure command %s follows object command %s", c.Name(), objects[len(objects)-1].Name())
			}
			if c.Role.Rank() < 0 {
				return nil, nil, fmt.Errorf("unknown infrastructure role %q", c.Role)
			}
			infra = append(infra, c)
		case ObjectCommand:
			objects = append(objects, c)
		default:
			return nil, nil, fmt.Errorf("unsupported command type %T", cmd)
		}
	}

	sortByRole(infra)
	return infra, objects, nil
}

func sortByRole(infra []InfrastructureCommand) {
	sort.SliceStable(infra, func(i, j int) bool {
		return infra[i].Role.Rank() < infra[j].Role.Rank()
	})
}
