package commands

import (
	"fmt"

	"gdaserver/internal/config"
)

// FromConfig builds the ordered command list: infrastructure commands in
// fixed role order followed by object commands in configuration order.
func FromConfig(cfg config.ServerConfig, factories *Factories) ([]Command, error) {
	if factories == nil {
		factories = NewFactories()
	}

	infra := make([]InfrastructureCommand, 0, len(cfg.Infrastructure))
	for _, def := range cfg.Infrastructure {
		infra = append(infra, InfrastructureCommand{
			Role:         def.Role,
			Argv:         def.Command,
			Env:          def.Env,
			Dir:          def.Dir,
			ReadyAddress: def.ReadyAddress,
		})
	}
	sortByRole(infra)

	cmds := make([]Command, 0, len(infra)+len(cfg.ObjectServers))
	for _, c := range infra {
		cmds = append(cmds, c)
	}

	for _, def := range cfg.ObjectServers {
		start, err := factories.starterFor(def)
		if err != nil {
			return nil, fmt.Errorf("failed to build object command: %w", err)
		}
		cmds = append(cmds, ObjectCommand{Profile: def.Profile, Start: start})
	}

	return cmds, nil
}
