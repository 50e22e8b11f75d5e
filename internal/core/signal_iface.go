package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Presence/internal/domain"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Frame is an encoded wire message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks; frames accepted by one connection are written in order.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// WireMessage is the envelope used in both directions.
type WireMessage struct {
	Type domain.EventName `json:"type"`
	Data json.RawMessage  `json:"data,omitempty"`
}

func EncodeEvent(p domain.Payload) (Frame, error) {
	if p == nil {
		return nil, errors.New("nil payload")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", p.EventName(), err)
	}
	b, err := json.Marshal(WireMessage{Type: p.EventName(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", p.EventName(), err)
	}
	return b, nil
}

func DecodeMessage(b []byte) (WireMessage, error) {
	var msg WireMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return WireMessage{}, err
	}
	if msg.Type == "" {
		return WireMessage{}, errors.New("missing message type")
	}
	return msg, nil
}
