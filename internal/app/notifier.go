package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrEventNameEmpty = errors.New("event name is empty")

// NotificationSender is the boundary other services use to reach users.
type NotificationSender interface {
	SendNotification(n domain.Notification) (core.PublishResult, error)
}

// ProjectBroadcaster fans an arbitrary event out to one room.
type ProjectBroadcaster interface {
	BroadcastToProject(room domain.RoomID, event domain.EventName, data any) (core.PublishResult, error)
}

// Notifier implements the outward boundary on top of the dispatcher.
type Notifier struct {
	Dispatcher *Dispatcher
}

func NewNotifier(d *Dispatcher) *Notifier {
	return &Notifier{Dispatcher: d}
}

// SendNotification targets the user when set, otherwise the project room,
// otherwise every connection.
func (n *Notifier) SendNotification(note domain.Notification) (core.PublishResult, error) {
	if err := note.Validate(); err != nil {
		return core.PublishResult{}, err
	}
	target := core.Broadcast()
	switch {
	case note.UserID != "":
		target = core.ToUser(note.UserID)
	case note.ProjectID != "":
		target = core.ToRoom(note.ProjectID)
	}
	res := n.Dispatcher.Dispatch(core.Envelope{Payload: note, Target: target})
	log.Info().
		Str("module", "app.notifier").
		Str("type", string(note.Type)).
		Str("user", string(note.UserID)).
		Str("project", string(note.ProjectID)).
		Int("sent_to", res.SendTo).
		Msg("notification sent")
	return res, nil
}

func (n *Notifier) BroadcastToProject(room domain.RoomID, event domain.EventName, data any) (core.PublishResult, error) {
	room, err := domain.ParseRoomID(string(room))
	if err != nil {
		return core.PublishResult{}, err
	}
	if event == "" {
		return core.PublishResult{}, ErrEventNameEmpty
	}
	if event == domain.EventReconnected {
		return core.PublishResult{}, fmt.Errorf("event %q is reserved for the client", event)
	}
	res := n.Dispatcher.Dispatch(core.Envelope{
		Payload: domain.RawEvent{Name: event, Data: data},
		Target:  core.ToRoom(room),
	})
	log.Debug().Str("module", "app.notifier").Str("project", string(room)).Str("event", string(event)).Int("sent_to", res.SendTo).Msg("project broadcast")
	return res, nil
}
