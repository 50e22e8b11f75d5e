package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/domain"
)

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent(domain.UserLeftProject{UserID: "u1", UserEmail: "u1@example.com", ProjectID: "P1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user-left-project","data":{"userId":"u1","userEmail":"u1@example.com","projectId":"P1"}}`, string(frame))

	frame, err = EncodeEvent(domain.RawEvent{Name: "build-finished", Data: map[string]int{"n": 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"build-finished","data":{"n":3}}`, string(frame))

	_, err = EncodeEvent(nil)
	assert.Error(t, err)
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"join-project","data":"P1"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.CommandJoinProject, msg.Type)
	assert.Equal(t, json.RawMessage(`"P1"`), msg.Data)

	_, err = DecodeMessage([]byte(`{"data":"P1"}`))
	assert.Error(t, err)
	_, err = DecodeMessage([]byte(`[`))
	assert.Error(t, err)
}

type roomSet map[domain.RoomID]bool

func (s roomSet) HasRoom(room domain.RoomID) bool { return s[room] }

func TestEndpointInAnyRoom(t *testing.T) {
	assert.True(t, Endpoint{}.InAnyRoom([]domain.RoomID{"P1"}), "no joined set means no filtering")

	ep := Endpoint{Joined: roomSet{"P2": true}}
	assert.True(t, ep.InAnyRoom([]domain.RoomID{"P1", "P2"}))
	assert.False(t, ep.InAnyRoom([]domain.RoomID{"P1"}))
}
