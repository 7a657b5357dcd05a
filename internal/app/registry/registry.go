package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
)

// Registry tracks, per user, the set of live connections on this node.
// It is the leaf of the coordinator: pure in-memory state, no side
// effects. The first-connection-in and last-connection-out transitions
// are computed inside the same critical section as the mutation, so
// each presence transition is observed exactly once no matter how many
// devices connect in the same instant.
//
// A connection lost without a close frame stays registered as a ghost
// until the transport's liveness machinery forces a close; the
// registry does not self-heal beyond accepting that eventual close.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]contracts.Client
	users map[string]map[uuid.UUID]contracts.Client
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uuid.UUID]contracts.Client),
		users: make(map[string]map[uuid.UUID]contracts.Client),
	}
}

// Register adds the connection to its user's set and reports whether
// it was the user's first live connection.
func (r *Registry) Register(c contracts.Client) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID := c.UserID()
	set := r.users[userID]
	if set == nil {
		set = make(map[uuid.UUID]contracts.Client)
		r.users[userID] = set
		first = true
	}
	set[c.ID()] = c
	r.conns[c.ID()] = c
	return first
}

// Unregister removes the connection and reports whether the user's set
// became empty. Unregistering an unknown connection is a no-op.
func (r *Registry) Unregister(c contracts.Client) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.ID()]; !ok {
		return false
	}
	delete(r.conns, c.ID())
	userID := c.UserID()
	set := r.users[userID]
	delete(set, c.ID())
	if len(set) == 0 {
		delete(r.users, userID)
		last = true
	}
	return last
}

// IsOnline reports whether the user holds at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// ConnectionsFor returns a snapshot of the user's live connections.
func (r *Registry) ConnectionsFor(userID string) []contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	out := make([]contracts.Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every live connection on this node.
func (r *Registry) All() []contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]contracts.Client, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
