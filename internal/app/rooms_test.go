package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/Presence/internal/domain"
)

func TestRoomTrackerJoinIsIdempotent(t *testing.T) {
	rt := NewRoomTracker()
	rt.Join("P1", "u1")
	rt.Join("P1", "u1")

	assert.Equal(t, []domain.UserID{"u1"}, rt.MembersOf("P1"))
	assert.True(t, rt.IsMember("P1", "u1"))
	assert.Equal(t, []domain.RoomInfo{{ID: "P1", MemberCount: 1}}, rt.List())
}

func TestRoomTrackerLeaveDropsEmptyRoom(t *testing.T) {
	rt := NewRoomTracker()
	rt.Join("P1", "u1")
	rt.Join("P1", "u2")

	rt.Leave("P1", "u1")
	assert.Equal(t, []domain.UserID{"u2"}, rt.MembersOf("P1"))

	rt.Leave("P1", "u2")
	assert.Empty(t, rt.MembersOf("P1"))
	assert.Empty(t, rt.List())
	assert.Empty(t, rt.RoomsOf("u2"))
}

func TestRoomTrackerLeaveUnknownIsNoop(t *testing.T) {
	rt := NewRoomTracker()
	rt.Join("P1", "u1")

	assert.NotPanics(t, func() {
		rt.Leave("P2", "u1")
		rt.Leave("P1", "u9")
	})
	assert.Equal(t, []domain.UserID{"u1"}, rt.MembersOf("P1"))
}

func TestRoomTrackerLeaveAll(t *testing.T) {
	rt := NewRoomTracker()
	rt.Join("A", "u1")
	rt.Join("B", "u1")
	rt.Join("B", "u2")

	left := rt.LeaveAll("u1")

	assert.ElementsMatch(t, []domain.RoomID{"A", "B"}, left)
	assert.Empty(t, rt.MembersOf("A"))
	assert.Equal(t, []domain.UserID{"u2"}, rt.MembersOf("B"))
	assert.Empty(t, rt.RoomsOf("u1"))
	assert.Empty(t, rt.LeaveAll("u1"))
}
