package risk

import (
	"sort"
	"sync"

	"floodwatch/internal/types"
)

// Registry holds the named scoring backends. The heuristic is always
// registered so lookup of the default name can never leave the engine without
// a scorer. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates a Registry pre-seeded with the heuristic backend.
func NewRegistry() *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	r.Register(Heuristic{})
	return r
}

// Register adds or replaces a backend under its own name.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeBackendUnavailable,
			"scoring backend not installed",
			nil,
			map[string]any{"backend": name},
		)
	}
	return b, nil
}

// Names returns the registered backend names sorted, heuristic first.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		if name != HeuristicName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{HeuristicName}, names...)
}
