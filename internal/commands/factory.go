package commands

import (
	"fmt"
	"sort"
	"sync"

	"gdaserver/internal/config"
)

// Kind turns an object server definition into a Starter.
type Kind func(def config.ObjectServerDefinition) (Starter, error)

// Factories maps object server kinds to their Kind constructors.
type Factories struct {
	mu    sync.RWMutex
	kinds map[config.ObjectServerKind]Kind
}

// NewFactories returns a registry holding the built-in "exec" kind.
func NewFactories() *Factories {
	f := &Factories{kinds: make(map[config.ObjectServerKind]Kind)}
	f.kinds[config.ObjectServerKindExec] = newExecStarter
	return f
}

// Register adds a kind. Registering a kind twice is an error.
func (f *Factories) Register(kind config.ObjectServerKind, k Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.kinds[kind]; exists {
		return fmt.Errorf("object server kind %q is already registered", kind)
	}
	f.kinds[kind] = k
	return nil
}

// Kinds returns the registered kind names, sorted.
func (f *Factories) Kinds() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.kinds))
	for k := range f.kinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

func (f *Factories) starterFor(def config.ObjectServerDefinition) (Starter, error) {
	kind := def.Kind
	if kind == "" {
		kind = config.ObjectServerKindExec
	}

	f.mu.RLock()
	k, exists := f.kinds[kind]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("object server %s: unknown kind %q (known: %v)", def.Profile, kind, f.Kinds())
	}
	return k(def)
}
