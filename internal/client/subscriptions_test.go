package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/domain"
)

func TestSubscriptionsRejoinAfterReconnect(t *testing.T) {
	first, second := newFakeTransport(), newFakeTransport()
	d := &fakeDialer{}
	d.push(dialResult{t: first}, dialResult{t: second})
	c := New(fastConfig(3), d)
	defer c.Disconnect()
	subs := NewSubscriptions(c)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	require.NoError(t, subs.Join("P2"))
	require.NoError(t, subs.Join("P1"))
	assert.Equal(t, []domain.RoomID{"P1", "P2"}, subs.Rooms())

	first.Close()
	require.Eventually(t, func() bool { return len(second.frames()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{
		`{"type":"join-project","data":"P1"}`,
		`{"type":"join-project","data":"P2"}`,
	}, second.frames())
}

func TestSubscriptionsJoinWhileDisconnected(t *testing.T) {
	c := New(fastConfig(3), &fakeDialer{})
	subs := NewSubscriptions(c)

	assert.ErrorIs(t, subs.Join("P1"), ErrNotConnected)
	assert.Equal(t, []domain.RoomID{"P1"}, subs.Rooms())

	assert.ErrorIs(t, subs.Join(" "), domain.ErrRoomIDEmpty)
}

func TestSubscriptionsLeaveAndClose(t *testing.T) {
	tr := newFakeTransport()
	d := &fakeDialer{}
	d.push(dialResult{t: tr})
	c := New(fastConfig(3), d)
	defer c.Disconnect()
	subs := NewSubscriptions(c)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	require.NoError(t, subs.Join("P1"))
	require.NoError(t, subs.Leave("P1"))
	require.NoError(t, subs.Leave("P9"), "leaving an unknown room sends nothing")
	assert.Empty(t, subs.Rooms())
	assert.Len(t, tr.frames(), 2)

	require.NoError(t, subs.Join("P2"))
	subs.Close()
	c.Bus().Emit(domain.Reconnected{Attempt: 1})
	assert.Len(t, tr.frames(), 3, "closed subscriptions do not rejoin")
}
