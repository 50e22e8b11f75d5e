package orch

import (
	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

// Typing relays a typing indicator to the other connections in scope.
func (o *Orchestrator) Typing(sess *app.Session, cmd domain.TypingCommand, started bool) (core.PublishResult, error) {
	if !sess.IsActive() {
		return core.PublishResult{}, ErrNotActive
	}
	if err := cmd.Validate(); err != nil {
		return core.PublishResult{}, err
	}
	id := sess.Identity()
	sig := domain.TypingSignal{
		EntityID:   cmd.EntityID,
		EntityType: cmd.EntityType,
		UserID:     id.UserID,
		UserEmail:  id.Email,
	}
	var p domain.Payload = domain.UserTyping(sig)
	if !started {
		p = domain.UserStoppedTyping(sig)
	}
	return o.relay(sess, cmd.ProjectID, p), nil
}

// Edit signals a field-level edit in progress. Conflicts are not resolved here.
func (o *Orchestrator) Edit(sess *app.Session, cmd domain.EditingCommand) (core.PublishResult, error) {
	if !sess.IsActive() {
		return core.PublishResult{}, ErrNotActive
	}
	if err := cmd.Validate(); err != nil {
		return core.PublishResult{}, err
	}
	id := sess.Identity()
	return o.relay(sess, cmd.ProjectID, domain.TestCaseUpdate{
		TestCaseID: cmd.TestCaseID,
		Field:      cmd.Field,
		Value:      cmd.Value,
		UserID:     id.UserID,
		UserEmail:  id.Email,
		Timestamp:  o.now(),
	}), nil
}

// RunStarted tells the project room that a run began. The sender is skipped.
func (o *Orchestrator) RunStarted(sess *app.Session, cmd domain.RunStartedCommand) (core.PublishResult, error) {
	if !sess.IsActive() {
		return core.PublishResult{}, ErrNotActive
	}
	if err := cmd.Validate(); err != nil {
		return core.PublishResult{}, err
	}
	room, _ := domain.ParseRoomID(string(cmd.ProjectID))
	return o.Dispatcher.Dispatch(core.Envelope{
		Payload: domain.TestRunStarted{
			TestRunID: cmd.TestRunID,
			ProjectID: room,
			StartedBy: sess.Identity().Ref(),
			Timestamp: o.now(),
		},
		Target: core.ToRoom(room).Excluding(sess.ID()),
	}), nil
}

func (o *Orchestrator) relay(sess *app.Session, project domain.RoomID, p domain.Payload) core.PublishResult {
	target, ok := o.relayTarget(sess, project)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sess.ID())).Str("event", string(p.EventName())).Msg("relay has no rooms in scope")
		return core.PublishResult{}
	}
	return o.Dispatcher.Dispatch(core.Envelope{Payload: p, Target: target.Excluding(sess.ID())})
}

// relayTarget picks the audience for ephemeral signals. In room scope a
// projectId narrows delivery to that room and is dropped unless the
// connection joined it; without one every joined room is used.
func (o *Orchestrator) relayTarget(sess *app.Session, project domain.RoomID) (core.Target, bool) {
	if o.RelayScope == RelayGlobal {
		return core.Broadcast(), true
	}
	if project != "" {
		if !sess.HasRoom(project) {
			return core.Target{}, false
		}
		return core.ToRoom(project), true
	}
	rooms := sess.Rooms()
	if len(rooms) == 0 {
		return core.Target{}, false
	}
	return core.ToRooms(rooms...), true
}
