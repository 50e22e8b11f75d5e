package client

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/domain"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func fastConfig(attempts int) Config {
	return Config{
		MaxReconnectAttempts: attempts,
		ReconnectDelay:       5 * time.Millisecond,
		ReconnectMaxDelay:    10 * time.Millisecond,
		DialTimeout:          time.Second,
	}
}

func TestConnectIsNoOpWhileConnected(t *testing.T) {
	d := &fakeDialer{}
	d.push(dialResult{t: newFakeTransport()})
	c := New(fastConfig(3), d)
	rec := record(c)
	defer c.Disconnect()

	require.NoError(t, c.Connect(context.Background(), "tok"))
	require.NoError(t, c.Connect(context.Background(), "tok"))

	assert.Equal(t, 1, d.count())
	assert.True(t, c.IsConnected())
	assert.Equal(t, []string{"connected"}, rec.reasons())
}

func TestConnectRequiresCredential(t *testing.T) {
	c := New(fastConfig(3), &fakeDialer{})
	assert.ErrorIs(t, c.Connect(context.Background(), "  "), ErrNoCredential)
}

func TestConnectFailureIsNotRetried(t *testing.T) {
	d := &fakeDialer{}
	c := New(fastConfig(3), d)

	err := c.Connect(context.Background(), "tok")
	require.Error(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.count())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestConnectUnauthorizedEmitsStatus(t *testing.T) {
	d := &fakeDialer{err: fmt.Errorf("%w: 401", ErrUnauthorized)}
	c := New(fastConfig(3), d)
	rec := record(c)

	err := c.Connect(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, []string{ReasonUnauthorized}, rec.reasons())
	assert.Equal(t, 1, d.count())
}

func TestTransportLossReconnects(t *testing.T) {
	first, second := newFakeTransport(), newFakeTransport()
	d := &fakeDialer{}
	d.push(dialResult{t: first}, dialResult{err: fmt.Errorf("refused")}, dialResult{t: second})
	c := New(fastConfig(5), d)
	rec := record(c)
	defer c.Disconnect()

	require.NoError(t, c.Connect(context.Background(), "tok"))
	first.Close()

	require.Eventually(t, func() bool { return len(rec.reconnects()) == 1 }, waitFor, tick)
	assert.Equal(t, domain.Reconnected{Attempt: 2}, rec.reconnects()[0])
	assert.True(t, c.IsConnected())
	assert.Equal(t, 3, d.count())
	assert.Equal(t, []string{"connected", ReasonTransportClosed, "connected"}, rec.reasons())
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	first := newFakeTransport()
	d := &fakeDialer{}
	d.push(dialResult{t: first})
	c := New(fastConfig(3), d)
	rec := record(c)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	first.Close()

	require.Eventually(t, func() bool {
		r := rec.reasons()
		return len(r) > 0 && r[len(r)-1] == ReasonReconnectFailed
	}, waitFor, tick)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1+3, d.count())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Empty(t, rec.reconnects())
	assert.Equal(t, []string{"connected", ReasonTransportClosed, ReasonReconnectFailed}, rec.reasons())
}

func TestReconnectStopsOnUnauthorized(t *testing.T) {
	first := newFakeTransport()
	d := &fakeDialer{err: fmt.Errorf("%w: 401", ErrUnauthorized)}
	d.push(dialResult{t: first})
	c := New(fastConfig(5), d)
	rec := record(c)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	first.Close()

	require.Eventually(t, func() bool { return c.State() == StateDisconnected }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, d.count())
	assert.Equal(t, []string{"connected", ReasonTransportClosed, ReasonUnauthorized}, rec.reasons())
}

func TestDisconnectStopsRetrying(t *testing.T) {
	first := newFakeTransport()
	d := &fakeDialer{}
	d.push(dialResult{t: first})
	cfg := fastConfig(5)
	cfg.ReconnectDelay = 200 * time.Millisecond
	cfg.ReconnectMaxDelay = 200 * time.Millisecond
	c := New(cfg, d)
	rec := record(c)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	first.Close()
	require.Eventually(t, func() bool { return c.State() == StateReconnecting }, waitFor, tick)

	c.Disconnect()
	time.Sleep(400 * time.Millisecond)

	assert.Equal(t, 1, d.count())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, []string{"connected", ReasonTransportClosed, ReasonClientDisconnect}, rec.reasons())
}

func TestReconnect(t *testing.T) {
	t.Run("without credential", func(t *testing.T) {
		c := New(fastConfig(3), &fakeDialer{})
		assert.ErrorIs(t, c.Reconnect(context.Background()), ErrNoCredential)
	})

	t.Run("no-op while connected", func(t *testing.T) {
		d := &fakeDialer{}
		d.push(dialResult{t: newFakeTransport()})
		c := New(fastConfig(3), d)
		defer c.Disconnect()

		require.NoError(t, c.Connect(context.Background(), "tok"))
		require.NoError(t, c.Reconnect(context.Background()))
		assert.Equal(t, 1, d.count())
	})

	t.Run("after disconnect", func(t *testing.T) {
		d := &fakeDialer{}
		d.push(dialResult{t: newFakeTransport()}, dialResult{t: newFakeTransport()})
		c := New(fastConfig(3), d)
		rec := record(c)
		defer c.Disconnect()

		require.NoError(t, c.Connect(context.Background(), "tok"))
		c.Disconnect()
		require.NoError(t, c.Reconnect(context.Background()))

		assert.True(t, c.IsConnected())
		assert.Equal(t, []domain.Reconnected{{Attempt: 1}}, rec.reconnects())
	})
}

func TestSendRequiresConnection(t *testing.T) {
	tr := newFakeTransport()
	d := &fakeDialer{}
	d.push(dialResult{t: tr})
	c := New(fastConfig(3), d)
	defer c.Disconnect()

	assert.ErrorIs(t, c.JoinProject("P1"), ErrNotConnected)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	require.NoError(t, c.JoinProject("P1"))
	require.NoError(t, c.Ping())

	assert.Equal(t, []string{
		`{"type":"join-project","data":"P1"}`,
		`{"type":"ping","data":null}`,
	}, tr.frames())
}

func TestIncomingFramesReachHandlers(t *testing.T) {
	tr := newFakeTransport()
	d := &fakeDialer{}
	d.push(dialResult{t: tr})
	c := New(fastConfig(3), d)
	defer c.Disconnect()

	got := make(chan domain.Notification, 1)
	Handle(c.Bus(), func(n domain.Notification) { got <- n })

	require.NoError(t, c.Connect(context.Background(), "tok"))
	tr.incoming <- []byte(`garbage`)
	tr.incoming <- []byte(`{"type":"notification","data":{"type":"info","title":"hi","message":""}}`)

	select {
	case n := <-got:
		assert.Equal(t, "hi", n.Title)
	case <-time.After(waitFor):
		t.Fatal("notification not delivered")
	}
	assert.True(t, c.IsConnected(), "undecodable frames do not drop the connection")
}
