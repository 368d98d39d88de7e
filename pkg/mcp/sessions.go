package mcp

import (
	"slices"
	"sync"
)

// SessionRegistry maps client IDs to MCP session IDs and records which
// workflows each client watches.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string          // clientID → sessionID
	watches  map[string]map[string]bool // workflowID → clientIDs
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]string),
		watches:  make(map[string]map[string]bool),
	}
}

// Register associates a client ID with a session ID.
// If the client already has a session, it is overwritten (reconnect).
func (r *SessionRegistry) Register(clientID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[clientID] = sessionID
}

// SessionFor returns the session ID for the given client, if connected.
func (r *SessionRegistry) SessionFor(clientID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[clientID]
	return sid, ok
}

// Watch subscribes clientID to notifications for workflowID.
func (r *SessionRegistry) Watch(clientID, workflowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clients := r.watches[workflowID]
	if clients == nil {
		clients = make(map[string]bool)
		r.watches[workflowID] = clients
	}
	clients[clientID] = true
}

// Unwatch removes one watch. Unknown pairs are ignored.
func (r *SessionRegistry) Unwatch(clientID, workflowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unwatchLocked(clientID, workflowID)
}

func (r *SessionRegistry) unwatchLocked(clientID, workflowID string) {
	clients := r.watches[workflowID]
	delete(clients, clientID)
	if len(clients) == 0 {
		delete(r.watches, workflowID)
	}
}

// Watchers returns the sorted client IDs watching workflowID.
func (r *SessionRegistry) Watchers(workflowID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.watches[workflowID]))
	for cid := range r.watches[workflowID] {
		out = append(out, cid)
	}
	slices.Sort(out)
	return out
}

// Watching returns the sorted workflow IDs clientID watches.
func (r *SessionRegistry) Watching(clientID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []string{}
	for wfID, clients := range r.watches {
		if clients[clientID] {
			out = append(out, wfID)
		}
	}
	slices.Sort(out)
	return out
}

// Remove deletes all client mappings and watches for the given session ID.
// Called when a session disconnects.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for cid, sid := range r.sessions {
		if sid != sessionID {
			continue
		}
		delete(r.sessions, cid)
		for wfID := range r.watches {
			r.unwatchLocked(cid, wfID)
		}
	}
}
