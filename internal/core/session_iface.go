package core

import (
	"github.com/dkeye/Presence/internal/domain"
	"github.com/google/uuid"
)

// ConnectionID identifies one physical connection. Never reused.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// JoinedRooms is the per-connection joined set. Room-targeted events only
// reach connections that joined the room themselves.
type JoinedRooms interface {
	HasRoom(room domain.RoomID) bool
}

// Endpoint binds a registered connection to its owner and transport.
// A nil Joined means the connection is not filtered by room.
type Endpoint struct {
	ID     ConnectionID
	UserID domain.UserID
	Signal SignalConnection
	Joined JoinedRooms
}

func (e Endpoint) InAnyRoom(rooms []domain.RoomID) bool {
	if e.Joined == nil {
		return true
	}
	for _, room := range rooms {
		if e.Joined.HasRoom(room) {
			return true
		}
	}
	return false
}

// ConnectionDirectory is the read side of the connection registry.
type ConnectionDirectory interface {
	ConnectionsOf(user domain.UserID) []ConnectionID
	Endpoint(id ConnectionID) (Endpoint, bool)
	Endpoints() []Endpoint
}
