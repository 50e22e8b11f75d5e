package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

// ConnectionState represents the current state of the controller.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Reasons carried by connection-status events.
const (
	ReasonTransportClosed  = "transport_closed"
	ReasonReconnectFailed  = "reconnect_failed"
	ReasonUnauthorized     = "unauthorized"
	ReasonClientDisconnect = "client_disconnect"
)

var (
	ErrNoCredential = errors.New("no credential")
	ErrNotConnected = errors.New("not connected")
)

// Config holds controller configuration.
type Config struct {
	// MaxReconnectAttempts bounds automatic retries after a transport loss.
	MaxReconnectAttempts int
	// ReconnectDelay is the initial delay between reconnection attempts.
	ReconnectDelay time.Duration
	// ReconnectMaxDelay caps the delay between reconnection attempts.
	ReconnectMaxDelay time.Duration
	// DialTimeout bounds a single handshake.
	DialTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts: 5,
		ReconnectDelay:       time.Second,
		ReconnectMaxDelay:    5 * time.Second,
		DialTimeout:          10 * time.Second,
	}
}

// Controller keeps at most one transport open and replaces it when it drops.
type Controller struct {
	cfg    Config
	dialer Dialer
	bus    *Bus

	// connectMu serializes caller-initiated dials.
	connectMu sync.Mutex

	mu         sync.Mutex
	state      ConnectionState
	credential string
	transport  Transport
	// epoch invalidates in-flight dials and retry loops when the caller
	// connects, reconnects or disconnects.
	epoch uint64
	retry context.CancelFunc
}

func New(cfg Config, dialer Dialer) *Controller {
	def := DefaultConfig()
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.ReconnectMaxDelay < cfg.ReconnectDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectDelay
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	return &Controller{cfg: cfg, dialer: dialer, bus: NewBus()}
}

func (c *Controller) Bus() *Bus { return c.bus }

func (c *Controller) On(name domain.EventName, fn Handler) HandlerID { return c.bus.On(name, fn) }

func (c *Controller) Off(name domain.EventName, id HandlerID) bool { return c.bus.Off(name, id) }

func (c *Controller) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) IsConnected() bool { return c.State() == StateConnected }

// Connect is a no-op while connected. A failed first dial is returned to
// the caller and not retried.
func (c *Controller) Connect(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrNoCredential
	}
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.cancelRetryLocked()
	c.epoch++
	epoch := c.epoch
	c.credential = credential
	c.state = StateConnecting
	c.mu.Unlock()

	t, err := c.dial(ctx, credential)
	if err != nil {
		c.mu.Lock()
		if c.epoch == epoch {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		if errors.Is(err, ErrUnauthorized) {
			c.bus.Emit(domain.ConnectionStatus{Connected: false, Reason: ReasonUnauthorized})
		}
		return err
	}
	if !c.attach(t, epoch, 0) {
		return ErrNotConnected
	}
	return nil
}

// Reconnect dials once right away with the last credential. A no-op while
// connected. Transport failures hand over to the automatic retry loop.
func (c *Controller) Reconnect(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	credential := c.credential
	if credential == "" {
		c.mu.Unlock()
		return ErrNoCredential
	}
	c.cancelRetryLocked()
	c.epoch++
	epoch := c.epoch
	c.state = StateReconnecting
	c.mu.Unlock()

	t, err := c.dial(ctx, credential)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.fail(epoch, ReasonUnauthorized)
			return err
		}
		c.startRetry(epoch, credential)
		return err
	}
	if !c.attach(t, epoch, 1) {
		return ErrNotConnected
	}
	return nil
}

// Disconnect closes the transport and stops any retry in progress.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	c.cancelRetryLocked()
	c.epoch++
	t := c.transport
	c.transport = nil
	was := c.state
	c.state = StateDisconnected
	c.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
	if was != StateDisconnected {
		c.bus.Emit(domain.ConnectionStatus{Connected: false, Reason: ReasonClientDisconnect})
	}
}

func (c *Controller) dial(ctx context.Context, credential string) (Transport, error) {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	return c.dialer.Dial(dctx, credential)
}

// attach installs a freshly dialed transport unless the caller moved on
// while it was being dialed.
func (c *Controller) attach(t Transport, epoch uint64, attempt int) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		_ = t.Close()
		return false
	}
	c.cancelRetryLocked()
	c.transport = t
	c.state = StateConnected
	c.mu.Unlock()

	log.Info().Str("module", "client").Int("attempt", attempt).Msg("connected")
	c.bus.Emit(domain.ConnectionStatus{Connected: true})
	if attempt > 0 {
		c.bus.Emit(domain.Reconnected{Attempt: attempt})
	}
	go c.readLoop(t)
	return true
}

func (c *Controller) readLoop(t Transport) {
	for {
		b, err := t.Read()
		if err != nil {
			c.onTransportLost(t, err)
			return
		}
		p, err := Decode(b)
		if err != nil {
			log.Warn().Str("module", "client").Err(err).Msg("dropping undecodable frame")
			continue
		}
		c.bus.Emit(p)
	}
}

func (c *Controller) onTransportLost(t Transport, err error) {
	c.mu.Lock()
	if c.transport != t {
		c.mu.Unlock()
		return
	}
	c.transport = nil
	c.state = StateReconnecting
	epoch := c.epoch
	credential := c.credential
	c.mu.Unlock()

	_ = t.Close()
	log.Warn().Str("module", "client").Err(err).Msg("transport lost")
	c.bus.Emit(domain.ConnectionStatus{Connected: false, Reason: ReasonTransportClosed})
	c.startRetry(epoch, credential)
}

func (c *Controller) startRetry(epoch uint64, credential string) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancelRetryLocked()
	c.retry = cancel
	c.state = StateReconnecting
	c.mu.Unlock()
	go c.retryLoop(ctx, epoch, credential)
}

func (c *Controller) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.ReconnectDelay
	exp.MaxInterval = c.cfg.ReconnectMaxDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.1
	exp.MaxElapsedTime = 0
	b := backoff.WithMaxRetries(exp, uint64(c.cfg.MaxReconnectAttempts))
	b.Reset()
	return b
}

func (c *Controller) retryLoop(ctx context.Context, epoch uint64, credential string) {
	b := c.newBackOff()
	for attempt := 1; ; attempt++ {
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		t, err := c.dial(ctx, credential)
		if err == nil {
			c.attach(t, epoch, attempt)
			return
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrUnauthorized) {
			log.Warn().Str("module", "client").Err(err).Msg("reconnect rejected")
			c.fail(epoch, ReasonUnauthorized)
			return
		}
		log.Warn().Str("module", "client").Int("attempt", attempt).Err(err).Msg("reconnect attempt failed")
	}
	log.Error().Str("module", "client").Int("attempts", c.cfg.MaxReconnectAttempts).Msg("giving up reconnecting")
	c.fail(epoch, ReasonReconnectFailed)
}

// fail ends retrying with a terminal status.
func (c *Controller) fail(epoch uint64, reason string) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.cancelRetryLocked()
	c.state = StateDisconnected
	c.mu.Unlock()
	c.bus.Emit(domain.ConnectionStatus{Connected: false, Reason: reason})
}

func (c *Controller) cancelRetryLocked() {
	if c.retry != nil {
		c.retry()
		c.retry = nil
	}
}

// Send writes one command frame on the current transport.
func (c *Controller) Send(name domain.EventName, data any) error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}
	b, err := encodeCommand(name, data)
	if err != nil {
		return err
	}
	return t.Write(b)
}

func (c *Controller) JoinProject(room domain.RoomID) error {
	return c.Send(domain.CommandJoinProject, room)
}

func (c *Controller) LeaveProject(room domain.RoomID) error {
	return c.Send(domain.CommandLeaveProject, room)
}

func (c *Controller) StartTyping(cmd domain.TypingCommand) error {
	return c.Send(domain.CommandTypingStart, cmd)
}

func (c *Controller) StopTyping(cmd domain.TypingCommand) error {
	return c.Send(domain.CommandTypingStop, cmd)
}

func (c *Controller) SendEditing(cmd domain.EditingCommand) error {
	return c.Send(domain.CommandTestCaseEditing, cmd)
}

func (c *Controller) StartTestRun(cmd domain.RunStartedCommand) error {
	return c.Send(domain.CommandTestRunStarted, cmd)
}

func (c *Controller) Ping() error {
	return c.Send(domain.CommandPing, nil)
}
