// Package registry maps provider kinds from configuration to constructors.
//
// Backend packages register themselves from registration.RegisterBuiltins:
//
//	func RegisterProviderFactory() {
//	    registry.Register(registry.Factory{
//	        Kind:     ProviderType,
//	        New:      CreateFromConfig,
//	        Validate: ValidateConfig,
//	    })
//	}
package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/tjfontaine/meeting-digest/internal/config"
	"github.com/tjfontaine/meeting-digest/internal/domain"
)

// Factory builds providers of one kind.
type Factory struct {
	// Kind matches provider.kind in configuration.
	Kind        string
	Description string
	New         func(cfg config.ProviderConfig) (domain.Provider, error)
	// Validate runs before New. Optional.
	Validate func(cfg config.ProviderConfig) error
}

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds f unless its kind is already taken, and reports whether it
// was added. It panics on a factory without a kind or constructor.
func Register(f Factory) bool {
	if f.Kind == "" || f.New == nil {
		panic(fmt.Sprintf("registry: incomplete factory %q", f.Kind))
	}

	mu.Lock()
	defer mu.Unlock()
	if _, taken := factories[f.Kind]; taken {
		return false
	}
	factories[f.Kind] = f
	return true
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// Create validates cfg and builds a provider of cfg.Kind.
func Create(cfg config.ProviderConfig) (domain.Provider, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider kind %q (registered: %v)", cfg.Kind, Kinds())
	}

	if f.Validate != nil {
		if err := f.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid %s provider config: %w", cfg.Kind, err)
		}
	}
	return f.New(cfg)
}

// Reset removes every factory. Tests use it to install stubs.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(factories)
}
