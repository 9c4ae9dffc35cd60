// detector/registry.go
package detector

import (
	"fmt"
	"sync"
)

// Factory creates a fresh detector for one run
type Factory func(env Env) Detector

// Registry manages available detectors. Registration order is the order in
// which detectors are fed, scored and explained.
type Registry struct {
	names     []string
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new detector registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a detector factory to the registry
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("detector %q already registered", name)
	}

	r.factories[name] = f
	r.names = append(r.names, name)
	return nil
}

// Names returns all detector names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.names...)
}

// Build creates one detector per registered factory, in registration order
func (r *Registry) Build(env Env) []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	detectors := make([]Detector, 0, len(r.names))
	for _, name := range r.names {
		detectors = append(detectors, r.factories[name](env))
	}
	return detectors
}

// DefaultRegistry returns a registry with the built-in detectors
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("low_signal", func(env Env) Detector { return NewLowSignalDetector(env) })
	r.Register("account_age", func(env Env) Detector { return NewAccountAgeDetector(env) })
	r.Register("median_rpu", func(env Env) Detector { return NewReviewsPerUserDetector(env) })
	r.Register("relation", func(env Env) Detector { return NewRelationDetector(env) })

	return r
}
