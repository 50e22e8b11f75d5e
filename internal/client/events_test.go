package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/domain"
)

func TestDecodeKnownEvent(t *testing.T) {
	p, err := Decode([]byte(`{"type":"user-joined-project","data":{"userId":"u1","userEmail":"u1@example.com","projectId":"P1"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.UserJoinedProject{UserID: "u1", UserEmail: "u1@example.com", ProjectID: "P1"}, p)
}

func TestDecodeUnknownEvent(t *testing.T) {
	p, err := Decode([]byte(`{"type":"future-event","data":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, UnknownEvent{Name: "future-event", Data: json.RawMessage(`{"x":1}`)}, p)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"pong","data":{"timestamp":"yesterday"}}`))
	assert.Error(t, err)
}
