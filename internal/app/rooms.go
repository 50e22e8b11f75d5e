package app

import (
	"sync"

	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

type memberSet map[domain.UserID]struct{}

// RoomTracker maps rooms to member users. A room entry exists only while it
// has members. Per-connection reference counting is the caller's job.
type RoomTracker struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]memberSet
	byUser map[domain.UserID]map[domain.RoomID]struct{}
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{
		rooms:  make(map[domain.RoomID]memberSet),
		byUser: make(map[domain.UserID]map[domain.RoomID]struct{}),
	}
}

func (t *RoomTracker) Join(room domain.RoomID, uid domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.rooms[room]
	if !ok {
		members = make(memberSet)
		t.rooms[room] = members
	}
	if _, ok := members[uid]; ok {
		return
	}
	members[uid] = struct{}{}
	joined, ok := t.byUser[uid]
	if !ok {
		joined = make(map[domain.RoomID]struct{})
		t.byUser[uid] = joined
	}
	joined[room] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("user", string(uid)).Int("members", len(members)).Msg("member joined")
}

func (t *RoomTracker) Leave(room domain.RoomID, uid domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaveLocked(room, uid)
}

func (t *RoomTracker) leaveLocked(room domain.RoomID, uid domain.UserID) {
	if members, ok := t.rooms[room]; ok {
		if _, ok := members[uid]; !ok {
			return
		}
		delete(members, uid)
		if len(members) == 0 {
			delete(t.rooms, room)
		}
	}
	if joined, ok := t.byUser[uid]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(t.byUser, uid)
		}
	}
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("user", string(uid)).Msg("member left")
}

// LeaveAll removes the user from every room. Used when a user's last connection closes.
func (t *RoomTracker) LeaveAll(uid domain.UserID) []domain.RoomID {
	t.mu.Lock()
	defer t.mu.Unlock()
	joined := t.byUser[uid]
	out := make([]domain.RoomID, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	for _, room := range out {
		t.leaveLocked(room, uid)
	}
	return out
}

func (t *RoomTracker) MembersOf(room domain.RoomID) []domain.UserID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := t.rooms[room]
	out := make([]domain.UserID, 0, len(members))
	for uid := range members {
		out = append(out, uid)
	}
	return out
}

func (t *RoomTracker) IsMember(room domain.RoomID, uid domain.UserID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[room][uid]
	return ok
}

func (t *RoomTracker) RoomsOf(uid domain.UserID) []domain.RoomID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	joined := t.byUser[uid]
	out := make([]domain.RoomID, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	return out
}

func (t *RoomTracker) List() []domain.RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(t.rooms))
	for id, members := range t.rooms {
		out = append(out, domain.RoomInfo{ID: id, MemberCount: len(members)})
	}
	return out
}
