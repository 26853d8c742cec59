package runtime

import (
	"pairchat/contract"
	"pairchat/domain"
	"sort"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set[K comparable] map[K]struct{}

// Registry is the room subscription table of the process.
// A connection must be registered before it can subscribe to rooms.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.ConnectionID]contract.EventSink
	roomMembers map[domain.RoomKey]Set[domain.ConnectionID]
	memberships map[domain.ConnectionID]Set[domain.RoomKey]
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[domain.ConnectionID]contract.EventSink),
		roomMembers: make(map[domain.RoomKey]Set[domain.ConnectionID]),
		memberships: make(map[domain.ConnectionID]Set[domain.RoomKey]),
	}
}

func (r *Registry) Register(conn domain.ConnectionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn] = sink
	if _, ok := r.memberships[conn]; !ok {
		r.memberships[conn] = make(Set[domain.RoomKey])
	}
}

// Unregister removes the connection from every room and returns the rooms it left.
func (r *Registry) Unregister(conn domain.ConnectionID) []domain.RoomKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]domain.RoomKey, 0, len(r.memberships[conn]))
	for room := range r.memberships[conn] {
		rooms = append(rooms, room)
		r.removeMember(room, conn)
	}
	delete(r.memberships, conn)
	delete(r.sessions, conn)
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Subscribe is a no-op for unregistered connections so that a late command
// cannot resurrect a closed session.
func (r *Registry) Subscribe(room domain.RoomKey, conn domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.memberships[conn]
	if !ok {
		return
	}
	rooms[room] = struct{}{}
	if _, ok := r.roomMembers[room]; !ok {
		r.roomMembers[room] = make(Set[domain.ConnectionID])
	}
	r.roomMembers[room][conn] = struct{}{}
}

func (r *Registry) Unsubscribe(room domain.RoomKey, conn domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rooms, ok := r.memberships[conn]; ok {
		delete(rooms, room)
	}
	r.removeMember(room, conn)
}

// removeMember expects the write lock. Empty rooms are dropped to prevent leaks.
func (r *Registry) removeMember(room domain.RoomKey, conn domain.ConnectionID) {
	if members, ok := r.roomMembers[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(r.roomMembers, room)
		}
	}
}

func (r *Registry) IsSubscribed(room domain.RoomKey, conn domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roomMembers[room][conn]
	return ok
}

// GetSinksForRoom resolves the members of a room into their sinks, skipping the excluded connections.
func (r *Registry) GetSinksForRoom(room domain.RoomKey, except ...domain.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[room]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for conn := range members {
		if contains(except, conn) {
			continue
		}
		if sink, exists := r.sessions[conn]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// ActiveSinks returns the sink of every registered connection.
func (r *Registry) ActiveSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func contains(conns []domain.ConnectionID, conn domain.ConnectionID) bool {
	for _, c := range conns {
		if c == conn {
			return true
		}
	}
	return false
}
