package presence

import "sync"

// Handle is a live connection capable of receiving targeted events. The
// realtime client implements it; tests substitute channel-backed fakes.
type Handle interface {
	Deliver(event string, payload any)
}

// Registry maps an authenticated user id to its live connection. The model
// is single-session: registering a new handle for a user replaces the old
// one (last-connected wins). Entries are transient and in-memory only.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register binds userID to handle, overwriting any prior handle.
func (r *Registry) Register(userID string, handle Handle) {
	if userID == "" || handle == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[userID] = handle
}

// Unregister removes the entry for userID only if it still points at
// handle. A stale disconnect from a replaced session therefore cannot
// evict the newer one.
func (r *Registry) Unregister(userID string, handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.handles[userID]; ok && current == handle {
		delete(r.handles, userID)
	}
}

// Deliver pushes an event to the user's live connection. It is a silent
// no-op when the user has no registered handle; the persisted notification
// remains retrievable either way.
func (r *Registry) Deliver(userID, event string, payload any) {
	r.mu.RLock()
	handle, ok := r.handles[userID]
	r.mu.RUnlock()
	if ok {
		handle.Deliver(event, payload)
	}
}

// Connected reports whether the user currently has a live connection.
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[userID]
	return ok
}
