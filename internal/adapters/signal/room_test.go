package signal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/domain"
)

func TestDecodeProjectID(t *testing.T) {
	room, err := decodeProjectID(json.RawMessage(`" P1 "`))
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("P1"), room)

	room, err = decodeProjectID(json.RawMessage(`{"projectId":"P2"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("P2"), room)

	_, err = decodeProjectID(json.RawMessage(`""`))
	assert.ErrorIs(t, err, domain.ErrRoomIDEmpty)

	_, err = decodeProjectID(json.RawMessage(`42`))
	assert.ErrorIs(t, err, errProjectID)

	_, err = decodeProjectID(nil)
	assert.Error(t, err)
}
