package core

import (
	"sort"
	"sync"
)

// Resolver maps participant identifiers to known buddies.
type Resolver interface {
	Resolve(id string) (*Buddy, bool)
}

// Registry is the set of known buddies keyed by identifier.
type Registry struct {
	mu      sync.RWMutex
	buddies map[string]*Buddy
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		buddies: make(map[string]*Buddy),
	}
}

// Lookup returns the buddy with the given id, if known.
func (r *Registry) Lookup(id string) (*Buddy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buddies[id]
	return b, ok
}

// Resolve implements Resolver.
func (r *Registry) Resolve(id string) (*Buddy, bool) {
	return r.Lookup(id)
}

// Add inserts a buddy. Returns false and keeps the existing entry if the id is taken.
func (r *Registry) Add(b *Buddy) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.buddies[b.ID()]; exists {
		return false
	}
	r.buddies[b.ID()] = b
	return true
}

// Clear drops every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buddies = make(map[string]*Buddy)
}

// Len returns the number of known buddies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buddies)
}

// List returns the known buddies ordered by display name, then id.
func (r *Registry) List() []*Buddy {
	r.mu.RLock()
	out := make([]*Buddy, 0, len(r.buddies))
	for _, b := range r.buddies {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ni, nj := out[i].DisplayName(), out[j].DisplayName()
		if ni != nj {
			return ni < nj
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}
