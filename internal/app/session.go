package app

import (
	"errors"
	"sync"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNotActive         = errors.New("session is not active")
)

// Session is one physical connection. It only moves forward through its
// states; Closed is terminal.
type Session struct {
	id core.ConnectionID

	mu       sync.RWMutex
	state    SessionState
	identity domain.Identity
	signal   core.SignalConnection
	rooms    map[domain.RoomID]struct{}
}

func NewSession() *Session {
	return &Session{
		id:    core.NewConnectionID(),
		state: StateConnecting,
		rooms: make(map[domain.RoomID]struct{}),
	}
}

func (s *Session) ID() core.ConnectionID { return s.id }

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) IsActive() bool { return s.State() == StateActive }

func (s *Session) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) UserID() domain.UserID { return s.Identity().UserID }

func (s *Session) Signal() core.SignalConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signal
}

func (s *Session) MarkAuthenticated(id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return ErrInvalidTransition
	}
	s.identity = id
	s.state = StateAuthenticated
	return nil
}

func (s *Session) MarkActive(sig core.SignalConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return ErrInvalidTransition
	}
	s.signal = sig
	s.state = StateActive
	return nil
}

// MarkClosed reports the state the session was in, and whether this call
// performed the transition.
func (s *Session) MarkClosed() (SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	if prev == StateClosed {
		return prev, false
	}
	s.state = StateClosed
	return prev, true
}

// AddRoom reports whether the room was newly added for this connection.
// Only an Active session takes new rooms.
func (s *Session) AddRoom(room domain.RoomID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return false, ErrNotActive
	}
	if _, ok := s.rooms[room]; ok {
		return false, nil
	}
	s.rooms[room] = struct{}{}
	return true, nil
}

func (s *Session) RemoveRoom(room domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return false
	}
	delete(s.rooms, room)
	return true
}

func (s *Session) HasRoom(room domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[room]
	return ok
}

func (s *Session) Rooms() []domain.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(s.rooms))
	for room := range s.rooms {
		out = append(out, room)
	}
	return out
}

// DrainRooms empties the joined set and returns what it held.
func (s *Session) DrainRooms() []domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RoomID, 0, len(s.rooms))
	for room := range s.rooms {
		out = append(out, room)
	}
	s.rooms = make(map[domain.RoomID]struct{})
	return out
}
