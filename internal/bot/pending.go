package bot

import "sync"

// Pending is a mutex-guarded registry of unclaimed items. Pop is atomic:
// under a race between several claimants exactly one gets the value and the
// rest get false. That single point is what keeps a broadcast task from
// being accepted twice.
type Pending[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// NewPending creates an empty registry.
func NewPending[K comparable, V any]() *Pending[K, V] {
	return &Pending[K, V]{m: make(map[K]V)}
}

// Put registers or replaces an item.
func (p *Pending[K, V]) Put(key K, value V) {
	p.mu.Lock()
	p.m[key] = value
	p.mu.Unlock()
}

// Pop removes and returns the item, reporting whether it was still there.
func (p *Pending[K, V]) Pop(key K) (V, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	if ok {
		delete(p.m, key)
	}
	return v, ok
}

// Has reports whether the item is still unclaimed.
func (p *Pending[K, V]) Has(key K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

// Snapshot returns a copy of the current items.
func (p *Pending[K, V]) Snapshot() map[K]V {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[K]V, len(p.m))
	for k, v := range p.m {
		out[k] = v
	}
	return out
}

// Len returns the number of unclaimed items.
func (p *Pending[K, V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
