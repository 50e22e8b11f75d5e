package orch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrNotActive = app.ErrNotActive

// Verifier turns a raw credential into an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

type RelayScope string

const (
	RelayRoom   RelayScope = "room"
	RelayGlobal RelayScope = "global"
)

func ParseRelayScope(s string) (RelayScope, error) {
	switch RelayScope(s) {
	case "", RelayRoom:
		return RelayRoom, nil
	case RelayGlobal:
		return RelayGlobal, nil
	}
	return "", fmt.Errorf("unknown relay scope %q", s)
}

type refKey struct {
	user domain.UserID
	room domain.RoomID
}

// Orchestrator drives connection sessions through their lifecycle and keeps
// the registry, the room tracker and per-connection joins consistent.
type Orchestrator struct {
	Registry   *app.Registry
	Rooms      *app.RoomTracker
	Dispatcher *app.Dispatcher
	Verifier   Verifier
	RelayScope RelayScope
	Now        func() time.Time

	// refMu guards refs and orders tracker updates against teardown.
	refMu sync.Mutex
	refs  map[refKey]int
}

func New(reg *app.Registry, rooms *app.RoomTracker, d *app.Dispatcher, v Verifier) *Orchestrator {
	return &Orchestrator{
		Registry:   reg,
		Rooms:      rooms,
		Dispatcher: d,
		Verifier:   v,
		RelayScope: RelayRoom,
		Now:        time.Now,
		refs:       make(map[refKey]int),
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Authenticate opens a session for the credential. On failure the session
// goes straight to Closed and is returned alongside the error.
func (o *Orchestrator) Authenticate(ctx context.Context, token string) (*app.Session, error) {
	sess := app.NewSession()
	id, err := o.Verifier.Verify(ctx, token)
	if err != nil {
		sess.MarkClosed()
		log.Info().Str("module", "orch").Str("sid", string(sess.ID())).Err(err).Msg("handshake rejected")
		return sess, err
	}
	if err := sess.MarkAuthenticated(id); err != nil {
		sess.MarkClosed()
		return sess, err
	}
	return sess, nil
}

// Activate binds the transport and registers the connection. After this the
// session may receive events and issue commands.
func (o *Orchestrator) Activate(sess *app.Session, sig core.SignalConnection) error {
	if sess.State() != app.StateAuthenticated {
		return app.ErrInvalidTransition
	}
	// Registered before Active, so teardown of a sibling never sees the user
	// offline while this session can already join rooms.
	o.Registry.Register(sess.UserID(), sess.ID(), sig, sess)
	if err := sess.MarkActive(sig); err != nil {
		o.Registry.Unregister(sess.UserID(), sess.ID())
		return err
	}
	log.Info().Str("module", "orch").Str("sid", string(sess.ID())).Str("user", string(sess.UserID())).Msg("session active")
	return nil
}

// Close tears the session down. Safe to call more than once and from any state.
func (o *Orchestrator) Close(sess *app.Session) {
	prev, ok := sess.MarkClosed()
	if !ok {
		return
	}
	if prev != app.StateActive {
		return
	}
	id := sess.Identity()
	o.Registry.Unregister(id.UserID, sess.ID())

	for _, room := range sess.DrainRooms() {
		if o.release(id.UserID, room) {
			o.notifyLeft(sess, room)
		}
	}

	o.refMu.Lock()
	if !o.Registry.IsOnline(id.UserID) {
		if drift := o.Rooms.LeaveAll(id.UserID); len(drift) > 0 {
			log.Warn().Str("module", "orch").Str("user", string(id.UserID)).Int("rooms", len(drift)).Msg("membership drift cleaned up")
		}
		for k := range o.refs {
			if k.user == id.UserID {
				delete(o.refs, k)
			}
		}
	}
	o.refMu.Unlock()

	if sig := sess.Signal(); sig != nil {
		sig.Close()
	}
	log.Info().Str("module", "orch").Str("sid", string(sess.ID())).Str("user", string(id.UserID)).Msg("session closed")
}

// Ping answers on the same connection only.
func (o *Orchestrator) Ping(sess *app.Session) error {
	if !sess.IsActive() {
		return ErrNotActive
	}
	o.SendTo(sess, domain.Pong{Timestamp: o.now()})
	return nil
}

// SendTo delivers a payload to this connection alone.
func (o *Orchestrator) SendTo(sess *app.Session, p domain.Payload) {
	sig := sess.Signal()
	if sig == nil {
		return
	}
	frame, err := core.EncodeEvent(p)
	if err != nil {
		log.Error().Str("module", "orch").Err(err).Msg("encode event")
		return
	}
	if err := sig.TrySend(frame); err != nil {
		log.Debug().Str("module", "orch").Str("sid", string(sess.ID())).Err(err).Msg("direct send failed")
	}
}

// Kick closes every connection of a user. The read pumps run the normal teardown.
func (o *Orchestrator) Kick(uid domain.UserID) int {
	n := 0
	for _, cid := range o.Registry.ConnectionsOf(uid) {
		ep, ok := o.Registry.Endpoint(cid)
		if !ok || ep.Signal == nil {
			continue
		}
		ep.Signal.Close()
		n++
	}
	log.Info().Str("module", "orch").Str("user", string(uid)).Int("connections", n).Msg("user kicked")
	return n
}
