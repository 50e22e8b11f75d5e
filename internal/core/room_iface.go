package core

import (
	"github.com/dkeye/Presence/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SendTo  int
	Dropped []ConnectionID
}

// MembershipReader is the read side of the room tracker.
type MembershipReader interface {
	MembersOf(room domain.RoomID) []domain.UserID
}

type TargetKind int

const (
	TargetUser TargetKind = iota
	TargetRooms
	TargetBroadcast
)

// Target selects the connections an event fans out to.
type Target struct {
	Kind   TargetKind
	User   domain.UserID
	Rooms  []domain.RoomID
	Except ConnectionID
}

func ToUser(id domain.UserID) Target { return Target{Kind: TargetUser, User: id} }

func ToRoom(id domain.RoomID) Target { return Target{Kind: TargetRooms, Rooms: []domain.RoomID{id}} }

// ToRooms reaches every member of any listed room once per connection.
func ToRooms(ids ...domain.RoomID) Target { return Target{Kind: TargetRooms, Rooms: ids} }

func Broadcast() Target { return Target{Kind: TargetBroadcast} }

// Excluding skips a single connection, usually the sender.
func (t Target) Excluding(id ConnectionID) Target {
	t.Except = id
	return t
}

// Envelope is a domain event on its way to the dispatcher. Fire-and-forget.
type Envelope struct {
	Payload domain.Payload
	Target  Target
}
