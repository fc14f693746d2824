package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Registry maps correlation ids to outstanding Waiters. Registration and
// await happen on caller goroutines; Resolve is called from the native
// SDK's worker threads. One mutex covers the map; it is held only for the
// map update, delivery happens after release.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*Waiter

	duplicates atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pending: map[string]*Waiter{}}
}

// NewWaiter registers a fresh waiter under a newly minted correlation id.
// Ids are unique among outstanding entries (uuids, never reused).
func (r *Registry) NewWaiter() *Waiter {
	w := &Waiter{
		id:   uuid.NewString(),
		reg:  r,
		done: make(chan Outcome, 1),
	}

	r.mu.Lock()
	r.pending[w.id] = w
	r.mu.Unlock()

	return w
}

// Resolve looks up and removes the entry for id, then delivers the outcome
// to its waiter. It reports whether the id was outstanding; false means the
// completion was stale (already resolved, cancelled, or torn down) and was
// dropped. Stale resolves are counted, since a duplicate native callback
// violates the SDK contract and is worth seeing in diagnostics.
func (r *Registry) Resolve(id string, o Outcome) bool {
	r.mu.Lock()
	w, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		r.duplicates.Add(1)

		return false
	}

	w.deliver(o)

	return true
}

// Remove drops the entry for id without delivering anything. Used on
// cancellation: a later native completion for the id becomes a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[id]; !ok {
		return false
	}

	delete(r.pending, id)

	return true
}

// CloseAll resolves every outstanding entry with a Closed outcome and
// returns how many there were. After CloseAll returns, no awaiter is left
// pending and the registry is empty; subsequent Resolves are stale no-ops.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	drained := r.pending
	r.pending = map[string]*Waiter{}
	r.mu.Unlock()

	for _, w := range drained {
		w.deliver(Outcome{Closed: true})
	}

	return len(drained)
}

// Len returns the number of outstanding entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// StaleResolves returns how many resolutions arrived for ids that were no
// longer outstanding.
func (r *Registry) StaleResolves() int64 {
	return r.duplicates.Load()
}
