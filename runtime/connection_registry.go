package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IConnectionRegistry = (*ConnectionRegistry)(nil)

type connectionSet map[domain.ConnectionID]contract.Connection

// ConnectionRegistry tracks every live connection and the identity each one
// is bound to. One identity may own many connections (multi-device), one
// connection owns at most one identity.
type ConnectionRegistry struct {
	mu          sync.RWMutex
	connections connectionSet                         // live connections, bound or not
	identities  map[domain.ConnectionID]domain.UserID // connection -> identity
	sessions    map[domain.UserID]connectionSet       // identity -> connections
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		connections: make(connectionSet),
		identities:  make(map[domain.ConnectionID]domain.UserID),
		sessions:    make(map[domain.UserID]connectionSet),
	}
}

// Register tracks a freshly accepted connection. It is not bound to anyone yet.
func (r *ConnectionRegistry) Register(conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ID()] = conn
}

// Deregister forgets a connection. The binding must already be gone;
// if it is not, it is removed anyway and ErrRegistryInvariant is returned.
func (r *ConnectionRegistry) Deregister(id domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connections, id)
	if user, ok := r.identities[id]; ok {
		r.unbindLocked(id, user)
		return fmt.Errorf("%w: connection %s still bound to %s", errors.ErrRegistryInvariant, id, user)
	}
	return nil
}

// Bind makes conn represent user. Binding the same identity again is a no-op,
// binding another identity replaces the previous one.
func (r *ConnectionRegistry) Bind(conn contract.Connection, user domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	// Checked under the lock so that a concurrent teardown either sees the
	// binding and removes it, or this call sees a dead connection.
	if !conn.Alive() {
		return errors.ErrConnectionClosed
	}
	if _, ok := r.connections[id]; !ok {
		return fmt.Errorf("%w: bind on unregistered connection %s", errors.ErrRegistryInvariant, id)
	}

	if previous, ok := r.identities[id]; ok {
		if previous == user {
			return nil
		}
		r.unbindLocked(id, previous)
	}

	r.identities[id] = user
	if _, ok := r.sessions[user]; !ok {
		r.sessions[user] = make(connectionSet)
	}
	r.sessions[user][id] = conn
	return nil
}

// Unbind removes the connection from whatever identity it was bound to.
func (r *ConnectionRegistry) Unbind(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.identities[id]; ok {
		r.unbindLocked(id, user)
	}
}

func (r *ConnectionRegistry) unbindLocked(id domain.ConnectionID, user domain.UserID) {
	delete(r.identities, id)
	if conns, ok := r.sessions[user]; ok {
		delete(conns, id)
		// No empty identity entries left behind
		if len(conns) == 0 {
			delete(r.sessions, user)
		}
	}
}

func (r *ConnectionRegistry) IdentityOf(id domain.ConnectionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.identities[id]
	return user, ok
}

// ConnectionsFor returns a snapshot of the live connections bound to user.
func (r *ConnectionRegistry) ConnectionsFor(user domain.UserID) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions[user])
}

func (r *ConnectionRegistry) Lookup(id domain.ConnectionID) (contract.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[id]
	return conn, ok
}

func (r *ConnectionRegistry) All() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.connections)
}

func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
