package verify

import "sync"

// Registry is a small named-predicate registry so a step's verification
// list can reference predicates by name from serialized step configuration
// (YAML/JSON step plans) instead of only from Go closures — useful for
// keeping a run's trace reproducible from a file, not just from code.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
}

// NewRegistry creates an empty predicate registry.
func NewRegistry() *Registry {
	return &Registry{predicates: make(map[string]Predicate)}
}

// Register associates name with p, overwriting any existing registration.
func (r *Registry) Register(name string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = p
}

// Get looks up a predicate by name.
func (r *Registry) Get(name string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predicates[name]
	return p, ok
}

// Names returns every registered predicate name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	return names
}
