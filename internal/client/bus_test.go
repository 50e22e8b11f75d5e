package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/Presence/internal/domain"
)

func TestBusPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := NewBus()
	var calls []string
	b.On(domain.EventPong, func(domain.Payload) { calls = append(calls, "first") })
	b.On(domain.EventPong, func(domain.Payload) { panic("boom") })
	b.On(domain.EventPong, func(domain.Payload) { calls = append(calls, "third") })

	assert.NotPanics(t, func() { b.Emit(domain.Pong{}) })
	assert.Equal(t, []string{"first", "third"}, calls)
}

func TestBusOff(t *testing.T) {
	b := NewBus()
	n := 0
	id := b.On(domain.EventPong, func(domain.Payload) { n++ })

	b.Emit(domain.Pong{})
	assert.True(t, b.Off(domain.EventPong, id))
	assert.False(t, b.Off(domain.EventPong, id))
	b.Emit(domain.Pong{})

	assert.Equal(t, 1, n)
}

func TestBusEmitOnlyMatchingEvent(t *testing.T) {
	b := NewBus()
	var got []domain.UserTyping
	Handle(b, func(e domain.UserTyping) { got = append(got, e) })

	b.Emit(domain.UserStoppedTyping{EntityID: "tc-1"})
	b.Emit(domain.UserTyping{EntityID: "tc-2"})

	assert.Equal(t, []domain.UserTyping{{EntityID: "tc-2"}}, got)
}

func TestBusHandlerMayUnsubscribeDuringEmit(t *testing.T) {
	b := NewBus()
	n := 0
	var id HandlerID
	id = b.On(domain.EventPong, func(domain.Payload) {
		n++
		b.Off(domain.EventPong, id)
	})

	b.Emit(domain.Pong{})
	b.Emit(domain.Pong{})
	assert.Equal(t, 1, n)
}
