package orch

import (
	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join adds the connection to a room. Joining a room the connection already
// holds is a no-op. Room members hear about the user once, on the first
// connection that joins.
func (o *Orchestrator) Join(sess *app.Session, room domain.RoomID) error {
	added, err := sess.AddRoom(room)
	if err != nil || !added {
		return err
	}
	id := sess.Identity()
	first, ok := o.acquire(sess, room)
	if !ok {
		return ErrNotActive
	}
	log.Info().Str("module", "orch").Str("sid", string(sess.ID())).Str("room", string(room)).Bool("first", first).Msg("joined room")
	if first {
		o.Dispatcher.Dispatch(core.Envelope{
			Payload: domain.UserJoinedProject{UserID: id.UserID, UserEmail: id.Email, ProjectID: room},
			Target:  core.ToRoom(room).Excluding(sess.ID()),
		})
	}
	return nil
}

// Leave is the inverse of Join. Leaving a room the connection does not hold
// is a no-op.
func (o *Orchestrator) Leave(sess *app.Session, room domain.RoomID) error {
	if !sess.IsActive() {
		return ErrNotActive
	}
	if !sess.RemoveRoom(room) {
		return nil
	}
	if o.release(sess.UserID(), room) {
		o.notifyLeft(sess, room)
	}
	log.Info().Str("module", "orch").Str("sid", string(sess.ID())).Str("room", string(room)).Msg("left room")
	return nil
}

func (o *Orchestrator) notifyLeft(sess *app.Session, room domain.RoomID) {
	id := sess.Identity()
	o.Dispatcher.Dispatch(core.Envelope{
		Payload: domain.UserLeftProject{UserID: id.UserID, UserEmail: id.Email, ProjectID: room},
		Target:  core.ToRoom(room).Excluding(sess.ID()),
	})
}

// acquire reports whether this was the user's first connection in the room.
// A session closed since AddRoom is rolled back and ok is false; teardown
// already ran or will not see this room.
func (o *Orchestrator) acquire(sess *app.Session, room domain.RoomID) (first, ok bool) {
	o.refMu.Lock()
	defer o.refMu.Unlock()
	if !sess.IsActive() {
		sess.RemoveRoom(room)
		return false, false
	}
	k := refKey{user: sess.UserID(), room: room}
	o.refs[k]++
	if o.refs[k] == 1 {
		o.Rooms.Join(room, sess.UserID())
		return true, true
	}
	return false, true
}

// release reports whether the user's last connection in the room let go.
func (o *Orchestrator) release(uid domain.UserID, room domain.RoomID) bool {
	o.refMu.Lock()
	defer o.refMu.Unlock()
	k := refKey{user: uid, room: room}
	n, ok := o.refs[k]
	if !ok {
		return false
	}
	if n > 1 {
		o.refs[k] = n - 1
		return false
	}
	delete(o.refs, k)
	o.Rooms.Leave(room, uid)
	return true
}

// Refs returns the number of connections the user holds in the room.
func (o *Orchestrator) Refs(uid domain.UserID, room domain.RoomID) int {
	o.refMu.Lock()
	defer o.refMu.Unlock()
	return o.refs[refKey{user: uid, room: room}]
}
