package runtime

import (
	"context"
	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type SessionState int32

const (
	Authenticating SessionState = iota
	Active
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return "unknown"
}

var _ contract.EventSink = (*Session)(nil)

// Session is the server side state of one live connection.
// Its identity never changes. Joined rooms are only mutated by the Coordinator.
type Session struct {
	ID        domain.ConnectionID
	Identity  domain.Identity
	ExpiresAt time.Time

	sink  contract.EventSink
	state atomic.Int32

	mu    sync.RWMutex
	rooms Set[domain.RoomKey]
}

func NewSession(id domain.ConnectionID, identity domain.Identity, expiresAt time.Time, sink contract.EventSink) *Session {
	return &Session{
		ID:        id,
		Identity:  identity,
		ExpiresAt: expiresAt,
		sink:      sink,
		rooms:     make(Set[domain.RoomKey]),
	}
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) IsActive() bool {
	return s.State() == Active
}

// activate reports false unless the session was still authenticating.
func (s *Session) activate() bool {
	return s.state.CompareAndSwap(int32(Authenticating), int32(Active))
}

// close is terminal and reports true only for the first call.
func (s *Session) close() bool {
	return SessionState(s.state.Swap(int32(Closed))) != Closed
}

func (s *Session) join(room domain.RoomKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = struct{}{}
}

func (s *Session) leave(room domain.RoomKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}

func (s *Session) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = make(Set[domain.RoomKey])
}

func (s *Session) HasJoined(room domain.RoomKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[room]
	return ok
}

func (s *Session) JoinedRooms() []domain.RoomKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]domain.RoomKey, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Consume forwards to the connection sink unless the session is closed.
func (s *Session) Consume(ctx context.Context, e event.Event) error {
	if s.State() == Closed {
		return errors.ErrSessionClosed
	}
	return s.sink.Consume(ctx, e)
}
