package vm

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps class names to their bootstrapped vtables. It replaces the
// process-wide registry of the C runtime: each Runtime is handed one
// explicitly and clears it on Close.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*VTable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*VTable)}
}

// Register adds a vtable under its class name. Registering a name twice
// is an error.
func (r *Registry) Register(vt *VTable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[vt.Name()]; ok {
		return fmt.Errorf("vm: %s: %w", vt.Name(), ErrDuplicateClass)
	}
	r.tables[vt.Name()] = vt
	return nil
}

// Singleton returns the vtable registered under name.
func (r *Registry) Singleton(name string) (*VTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vt, ok := r.tables[name]
	return vt, ok
}

// Names returns every registered class name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]*VTable)
}
