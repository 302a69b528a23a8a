package realtime

import (
	"context"
	"sort"
	"sync"
)

// SessionRegistry maps each connected user to its single live session.
// The most recent Bind wins.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Bind records sessionID as the live session of userID. It returns the
// session it replaced, if any.
func (r *SessionRegistry) Bind(userID, sessionID string) (previous string, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced = r.sessions[userID]
	r.sessions[userID] = sessionID
	return previous, replaced && previous != sessionID
}

// Unbind removes the binding of userID only if it still points at
// sessionID, so a stale disconnect never evicts a newer session.
func (r *SessionRegistry) Unbind(userID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[userID]; !ok || current != sessionID {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Lookup returns the live session of userID.
func (r *SessionRegistry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.sessions[userID]
	return id, ok
}

// Bindings returns a snapshot of every user to session binding.
func (r *SessionRegistry) Bindings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.sessions))
	for userID, sessionID := range r.sessions {
		out[userID] = sessionID
	}
	return out
}

// Len returns the number of bound users.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// OnlineUserIDs returns the bound users in lexical order.
func (r *SessionRegistry) OnlineUserIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
