package ws

import "sync"

// entry is the per-connection metadata owned by the registry.
type entry struct {
	client *Client
	alive  bool
	pollID string
	userID string
}

// Registry owns the set of live connections and their liveness flags. All
// mutations take the one lock; nothing blocks while holding it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a connection with liveness true and no subscription.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	r.entries[c.ID] = &entry{client: c, alive: true}
	r.mu.Unlock()
}

// MarkAlive records a probe response. A connection that was already
// reclaimed is silently ignored.
func (r *Registry) MarkAlive(connID string) {
	r.mu.Lock()
	if e, ok := r.entries[connID]; ok {
		e.alive = true
	}
	r.mu.Unlock()
}

// SetSubscription records the room and user this connection represents.
// Returns false if the connection was concurrently reclaimed.
func (r *Registry) SetSubscription(connID, pollID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[connID]
	if !ok {
		return false
	}
	e.pollID = pollID
	e.userID = userID
	return true
}

// ClearSubscription drops the room association without closing the transport.
func (r *Registry) ClearSubscription(connID string) {
	r.mu.Lock()
	if e, ok := r.entries[connID]; ok {
		e.pollID = ""
		e.userID = ""
	}
	r.mu.Unlock()
}

// Subscription returns the connection's current room association.
func (r *Registry) Subscription(connID string) (pollID, userID string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[connID]
	if !ok {
		return "", "", false
	}
	return e.pollID, e.userID, true
}

// Remove deletes the entry and returns its last known subscription so the
// caller can unwind room membership.
func (r *Registry) Remove(connID string) (pollID, userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[connID]
	if !ok {
		return "", "", false
	}
	delete(r.entries, connID)
	return e.pollID, e.userID, true
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SweepLiveness performs one heartbeat pass over every connection. Entries
// whose flag is still down since the previous sweep are returned as stale;
// the rest have their flag reset and are returned for pinging. The flag
// comes back up only via MarkAlive before the next sweep.
func (r *Registry) SweepLiveness() (stale, toPing []*Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if !e.alive {
			stale = append(stale, e.client)
			continue
		}
		e.alive = false
		toPing = append(toPing, e.client)
	}
	return stale, toPing
}
