package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRoomRegistry = (*RoomRegistry)(nil)

type roomSet map[domain.RoomID]struct{}

// RoomRegistry tracks which connections are subscribed to which room.
// Rooms are created by the first join and pruned when their last member leaves.
type RoomRegistry struct {
	mu          sync.RWMutex
	members     map[domain.RoomID]connectionSet // room -> connections
	memberships map[domain.ConnectionID]roomSet // connection -> rooms, used by LeaveAll
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		members:     make(map[domain.RoomID]connectionSet),
		memberships: make(map[domain.ConnectionID]roomSet),
	}
}

// Join subscribes conn to room. Joining twice is a no-op.
func (r *RoomRegistry) Join(conn contract.Connection, room domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A connection closed before LeaveAll took the lock must not come back.
	if !conn.Alive() {
		return errors.ErrConnectionClosed
	}

	id := conn.ID()
	if _, ok := r.members[room]; !ok {
		r.members[room] = make(connectionSet)
	}
	r.members[room][id] = conn

	if _, ok := r.memberships[id]; !ok {
		r.memberships[id] = make(roomSet)
	}
	r.memberships[id][room] = struct{}{}
	return nil
}

// LeaveAll removes the connection from every room in a single critical section
// and returns the rooms it left. A room entry that does not list the
// connection back is reported as ErrRegistryInvariant after cleanup.
func (r *RoomRegistry) LeaveAll(id domain.ConnectionID) ([]domain.RoomID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.memberships[id]
	if !ok {
		return nil, nil
	}
	delete(r.memberships, id)

	var inconsistent []domain.RoomID
	for room := range rooms {
		members, ok := r.members[room]
		if !ok {
			inconsistent = append(inconsistent, room)
			continue
		}
		if _, ok := members[id]; !ok {
			inconsistent = append(inconsistent, room)
		}
		delete(members, id)
		// If no one is left in the room, remove the room entry entirely
		if len(members) == 0 {
			delete(r.members, room)
		}
	}

	left := lo.Keys(rooms)
	if len(inconsistent) > 0 {
		return left, fmt.Errorf("%w: connection %s missing from rooms %v", errors.ErrRegistryInvariant, id, inconsistent)
	}
	return left, nil
}

// MembersOf returns a snapshot of the room's members. Nil when the room does not exist.
func (r *RoomRegistry) MembersOf(room domain.RoomID) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.members[room]
	if !ok {
		return nil
	}
	return lo.Values(members)
}

func (r *RoomRegistry) RoomsOf(id domain.ConnectionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.memberships[id])
}

func (r *RoomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
