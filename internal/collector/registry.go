package collector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/stratsim/internal/core"
)

// Registry holds the history sources known to the process, keyed by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Collector
}

// NewRegistry returns a registry preloaded with the given collectors.
func NewRegistry(collectors ...Collector) *Registry {
	r := &Registry{sources: make(map[string]Collector, len(collectors))}
	for _, c := range collectors {
		r.Register(c)
	}
	return r
}

// Register adds c, replacing any collector with the same name.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	r.sources[c.Name()] = c
	r.mu.Unlock()
}

// Get retrieves a collector by name
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sources[name]
	return c, ok
}

// Names lists the registered source names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Open initializes the named source with cfg and returns it ready to fetch.
func (r *Registry) Open(name string, cfg Config) (Collector, error) {
	c, ok := r.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data source %q (available: %v)", name, r.Names()))
	}
	if err := c.Init(cfg); err != nil {
		return nil, fmt.Errorf("initializing %s collector: %w", name, err)
	}
	return c, nil
}
