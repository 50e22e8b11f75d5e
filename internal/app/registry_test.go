package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/core"
)

func TestRegistryRegisterAndUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", &fakeSignal{}, nil)
	r.Register("u1", "c2", &fakeSignal{}, nil)

	assert.True(t, r.IsOnline("u1"))
	assert.ElementsMatch(t, []core.ConnectionID{"c1", "c2"}, r.ConnectionsOf("u1"))
	assert.Equal(t, 2, r.Count())

	r.Unregister("u1", "c1")
	assert.True(t, r.IsOnline("u1"))
	assert.Equal(t, []core.ConnectionID{"c2"}, r.ConnectionsOf("u1"))

	r.Unregister("u1", "c2")
	assert.False(t, r.IsOnline("u1"))
	assert.Empty(t, r.OnlineUsers())
	assert.Empty(t, r.ConnectionsOf("u1"))
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	sig := &fakeSignal{}
	r.Register("u1", "c1", sig, nil)
	r.Register("u1", "c1", nil, nil)

	assert.Len(t, r.ConnectionsOf("u1"), 1)
	ep, ok := r.Endpoint("c1")
	require.True(t, ok)
	assert.Same(t, sig, ep.Signal)
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	assert.NotPanics(t, func() { r.Unregister("u1", "nope") })
	assert.False(t, r.IsOnline("u1"))
}

func TestRegistryRejectsConnectionOwnedByAnotherUser(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", &fakeSignal{}, nil)

	assert.Panics(t, func() { r.Register("u2", "c1", &fakeSignal{}, nil) })
	assert.Panics(t, func() { r.Unregister("u2", "c1") })
	assert.Equal(t, []core.ConnectionID{"c1"}, r.ConnectionsOf("u1"))
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cid := core.ConnectionID(fmt.Sprintf("c%d", i))
			r.Register("u1", cid, &fakeSignal{}, nil)
			_ = r.ConnectionsOf("u1")
			r.Unregister("u1", cid)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
	assert.False(t, r.IsOnline("u1"))
}
