package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity(" u1 ", " u1@example.com ", "Admin")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Email: "u1@example.com", Role: RoleAdmin}, id)
	assert.Equal(t, UserRef{ID: "u1", Email: "u1@example.com"}, id.Ref())

	id, err = NewIdentity("u2", "", "")
	require.NoError(t, err)
	assert.Equal(t, RoleMember, id.Role)

	_, err = NewIdentity("", "x", "admin")
	assert.ErrorIs(t, err, ErrUserIDEmpty)
	_, err = NewIdentity(strings.Repeat("u", MaxUserIDLen+1), "", "")
	assert.ErrorIs(t, err, ErrUserIDTooLong)
	_, err = NewIdentity("u3", strings.Repeat("e", MaxEmailLen+1), "")
	assert.ErrorIs(t, err, ErrEmailTooLong)
	_, err = NewIdentity("u4", "", "root")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseRoomID(t *testing.T) {
	room, err := ParseRoomID("  P1\t")
	require.NoError(t, err)
	assert.Equal(t, RoomID("P1"), room)

	_, err = ParseRoomID(" ")
	assert.ErrorIs(t, err, ErrRoomIDEmpty)
	_, err = ParseRoomID(strings.Repeat("p", MaxRoomIDLen+1))
	assert.ErrorIs(t, err, ErrRoomIDTooLong)
}

func TestCommandValidate(t *testing.T) {
	assert.NoError(t, TypingCommand{EntityID: "tc-1", EntityType: "testCase"}.Validate())
	assert.ErrorIs(t, TypingCommand{EntityID: "tc-1"}.Validate(), ErrMissingField)

	assert.NoError(t, EditingCommand{TestCaseID: "tc-1", Field: "title"}.Validate())
	assert.ErrorIs(t, EditingCommand{Field: "title"}.Validate(), ErrMissingField)

	assert.NoError(t, RunStartedCommand{TestRunID: "r1", ProjectID: "P1"}.Validate())
	assert.ErrorIs(t, RunStartedCommand{ProjectID: "P1"}.Validate(), ErrMissingField)
	assert.ErrorIs(t, RunStartedCommand{TestRunID: "r1"}.Validate(), ErrRoomIDEmpty)
}

func TestNotificationValidate(t *testing.T) {
	assert.NoError(t, Notification{Type: NotificationInfo, Title: "hi"}.Validate())
	assert.ErrorIs(t, Notification{Type: "loud", Title: "hi"}.Validate(), ErrNotificationType)
	assert.ErrorIs(t, Notification{Type: NotificationError, Title: " "}.Validate(), ErrNotificationEmpty)
}
