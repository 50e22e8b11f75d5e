package client

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

// Subscriptions owns the set of rooms a consumer cares about and re-joins
// them after every reconnect.
type Subscriptions struct {
	c  *Controller
	id HandlerID

	mu    sync.Mutex
	rooms map[domain.RoomID]struct{}
}

func NewSubscriptions(c *Controller) *Subscriptions {
	s := &Subscriptions{c: c, rooms: make(map[domain.RoomID]struct{})}
	s.id = Handle(c.Bus(), func(domain.Reconnected) { s.resubscribe() })
	return s
}

// Join remembers the room even when the join cannot be sent right now; it
// goes out with the next reconnect.
func (s *Subscriptions) Join(room domain.RoomID) error {
	room, err := domain.ParseRoomID(string(room))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rooms[room] = struct{}{}
	s.mu.Unlock()
	return s.c.JoinProject(room)
}

func (s *Subscriptions) Leave(room domain.RoomID) error {
	s.mu.Lock()
	_, ok := s.rooms[room]
	delete(s.rooms, room)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.c.LeaveProject(room)
}

func (s *Subscriptions) Rooms() []domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RoomID, 0, len(s.rooms))
	for room := range s.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close stops re-joining on reconnect. Rooms already joined stay joined.
func (s *Subscriptions) Close() {
	s.c.Off(domain.EventReconnected, s.id)
}

func (s *Subscriptions) resubscribe() {
	for _, room := range s.Rooms() {
		if err := s.c.JoinProject(room); err != nil {
			log.Warn().Str("module", "client.subscriptions").Str("room", string(room)).Err(err).Msg("rejoin failed")
		}
	}
}
