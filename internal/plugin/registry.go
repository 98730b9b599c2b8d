package plugin

import (
	"sync"
)

// Registry is the ordered, append-only list of loaded instances.
// The watcher appends while dispatch reads.
type Registry struct {
	mu        sync.RWMutex
	instances []*Instance
}

// Append adds inst at the end and returns the new length.
func (r *Registry) Append(inst *Instance) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = append(r.instances, inst)
	return len(r.instances)
}

// Snapshot returns the current instances in load order.
// Entries are never removed, so the copy stays valid.
func (r *Registry) Snapshot() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// Len returns the number of instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
