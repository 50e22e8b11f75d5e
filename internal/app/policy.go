package app

import "github.com/dkeye/Presence/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a connection whose outbound queue is full.
type Policy interface {
	OnBackPressure(ep core.Endpoint) BackpressureAction
}

// SimplePolicy disconnects slow consumers; the client reconnects and
// resubscribes on its own.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.Endpoint) BackpressureAction {
	return KickMember
}

// DropPolicy keeps slow consumers connected and drops the frame.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.Endpoint) BackpressureAction {
	return DropFrame
}

func PolicyByName(name string) Policy {
	switch name {
	case "drop":
		return DropPolicy{}
	default:
		return SimplePolicy{}
	}
}
