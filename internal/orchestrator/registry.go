package orchestrator

import (
	"fmt"
	"sync"

	"gdaserver/internal/commands"
	"gdaserver/internal/config"
	"gdaserver/internal/services"
)

// InfrastructureEntry is a running infrastructure process and its role.
type InfrastructureEntry struct {
	Role   config.Role
	Handle commands.ProcessHandle
}

// ObjectEntry is a running object server and its profile.
type ObjectEntry struct {
	Profile string
	Service services.Service
}

// Registry holds the live handles of everything the sequencer started, in
// start order. Once sealed it accepts no more entries.
type Registry struct {
	mu      sync.RWMutex
	infra   []InfrastructureEntry
	objects []ObjectEntry
	sealed  bool
	sealing chan struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sealing: make(chan struct{})}
}

// AddInfrastructure registers a started infrastructure process under role.
func (r *Registry) AddInfrastructure(role config.Role, handle commands.ProcessHandle) error {
	if handle == nil {
		return fmt.Errorf("cannot register %s: no process handle", role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("cannot register %s: %w", role, commands.ErrRegistrySealed)
	}
	for _, e := range r.infra {
		if e.Role == role {
			return fmt.Errorf("infrastructure role %s is already registered", role)
		}
	}
	r.infra = append(r.infra, InfrastructureEntry{Role: role, Handle: handle})
	return nil
}

// AddObject registers a started object server under profile.
func (r *Registry) AddObject(profile string, svc services.Service) error {
	if svc == nil {
		return fmt.Errorf("cannot register %s: %w", profile, commands.ErrAbsentHandle)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("cannot register %s: %w", profile, commands.ErrRegistrySealed)
	}
	for _, e := range r.objects {
		if e.Profile == profile {
			return fmt.Errorf("object server profile %s is already registered", profile)
		}
	}
	r.objects = append(r.objects, ObjectEntry{Profile: profile, Service: svc})
	return nil
}

// Len returns the number of registered infrastructure and object entries.
func (r *Registry) Len() (infra, objects int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.infra), len(r.objects)
}

// Sealed reports whether shutdown has taken over the registry.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Sealing is closed when the registry is sealed.
func (r *Registry) Sealing() <-chan struct{} {
	return r.sealing
}

// Snapshot returns copies of the entries in start order.
func (r *Registry) Snapshot() ([]InfrastructureEntry, []ObjectEntry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infra := make([]InfrastructureEntry, len(r.infra))
	copy(infra, r.infra)
	objects := make([]ObjectEntry, len(r.objects))
	copy(objects, r.objects)
	return infra, objects
}

// Seal stops further registration and hands over every entry, clearing the
// registry. Entries are returned in start order.
func (r *Registry) Seal() ([]InfrastructureEntry, []ObjectEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.sealed {
		r.sealed = true
		close(r.sealing)
	}
	infra, objects := r.infra, r.objects
	r.infra, r.objects = nil, nil
	return infra, objects
}
