package chat

import (
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Peer is the minimal surface the registry and gateway need from a
// connected endpoint: a stable session identity and the ability to push
// events to the client behind it.
type Peer interface {
	// ID identifies this particular connection, not the user.
	ID() string
	// UserID is the authenticated identity bound at handshake time.
	UserID() string
	// User is the same identity as a store id.
	User() bson.ObjectID
	// Push queues an event for delivery to the client.
	Push(*Event) error
	// Close tears the connection down.
	Close()
}

// Registry is the process-wide map from user identity to the single
// live connection for that user. It is the only mutable state shared
// across connection goroutines; every operation is atomic and none
// performs I/O under the lock.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]Peer)}
}

// Register associates the peer with its user. At most one connection is
// held per identity: a second login silently evicts the first, and the
// evicted peer is returned so the caller can close it outside the lock.
func (r *Registry) Register(p Peer) (evicted Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.peers[p.UserID()]
	r.peers[p.UserID()] = p
	if prev != nil && prev.ID() != p.ID() {
		return prev
	}
	return nil
}

// Unregister removes the association only if the stored peer still has
// the given session id. A disconnect event racing a newer connection's
// Register must not evict the newer handle. Reports whether an entry
// was removed.
func (r *Registry) Unregister(userID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.peers[userID]
	if !ok || cur.ID() != sessionID {
		return false
	}
	delete(r.peers, userID)
	return true
}

// Lookup returns the live peer for a user, if any. Absence is an empty
// result, not a failure.
func (r *Registry) Lookup(userID string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[userID]
	return p, ok
}

// Snapshot returns the peers connected at this instant. Fan-out paths
// iterate the snapshot so pushes happen without holding the lock.
func (r *Registry) Snapshot() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}
