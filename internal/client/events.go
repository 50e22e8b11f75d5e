package client

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// UnknownEvent keeps frames with an event name this build does not know, so
// newer servers do not break older clients.
type UnknownEvent struct {
	Name domain.EventName
	Data json.RawMessage
}

func (e UnknownEvent) EventName() domain.EventName { return e.Name }

type decodeFunc func(json.RawMessage) (domain.Payload, error)

var decoders = map[domain.EventName]decodeFunc{
	domain.EventConnectionStatus:    decodeAs[domain.ConnectionStatus],
	domain.EventNotification:        decodeAs[domain.Notification],
	domain.EventTestExecutionUpdate: decodeAs[domain.TestExecutionUpdate],
	domain.EventCollaborationUpdate: decodeAs[domain.CollaborationUpdate],
	domain.EventTestCaseUpdate:      decodeAs[domain.TestCaseUpdate],
	domain.EventUserJoinedProject:   decodeAs[domain.UserJoinedProject],
	domain.EventUserLeftProject:     decodeAs[domain.UserLeftProject],
	domain.EventTestRunStarted:      decodeAs[domain.TestRunStarted],
	domain.EventUserTyping:          decodeAs[domain.UserTyping],
	domain.EventUserStoppedTyping:   decodeAs[domain.UserStoppedTyping],
	domain.EventError:               decodeAs[domain.ErrorPayload],
	domain.EventPong:                decodeAs[domain.Pong],
}

func decodeAs[T domain.Payload](data json.RawMessage) (domain.Payload, error) {
	var v T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Decode turns one wire frame into its typed payload.
func Decode(frame []byte) (domain.Payload, error) {
	msg, err := core.DecodeMessage(frame)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	dec, ok := decoders[msg.Type]
	if !ok {
		return UnknownEvent{Name: msg.Type, Data: msg.Data}, nil
	}
	p, err := dec(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return p, nil
}

func encodeCommand(name domain.EventName, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return json.Marshal(core.WireMessage{Type: name, Data: raw})
}
