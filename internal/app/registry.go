package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	UserID domain.UserID
	Signal core.SignalConnection
	Joined core.JoinedRooms
}

func (e *connEntry) endpoint(cid core.ConnectionID) core.Endpoint {
	return core.Endpoint{ID: cid, UserID: e.UserID, Signal: e.Signal, Joined: e.Joined}
}

// Registry maps users to their open connections.
// A user with no connections has no entry at all.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]map[core.ConnectionID]struct{}
	conns  map[core.ConnectionID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[domain.UserID]map[core.ConnectionID]struct{}),
		conns:  make(map[core.ConnectionID]*connEntry),
	}
}

// Register is idempotent for the same (user, connection) pair. Registering a
// connection id owned by another user is a programming error and panics.
func (r *Registry) Register(uid domain.UserID, cid core.ConnectionID, sig core.SignalConnection, joined core.JoinedRooms) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[cid]; ok {
		if e.UserID != uid {
			panic(fmt.Sprintf("registry: connection %s already owned by %s, not %s", cid, e.UserID, uid))
		}
		if sig != nil {
			e.Signal = sig
		}
		if joined != nil {
			e.Joined = joined
		}
		return
	}
	r.conns[cid] = &connEntry{UserID: uid, Signal: sig, Joined: joined}
	set, ok := r.byUser[uid]
	if !ok {
		set = make(map[core.ConnectionID]struct{})
		r.byUser[uid] = set
	}
	set[cid] = struct{}{}
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Str("user", string(uid)).Int("user_connections", len(set)).Msg("registered connection")
}

func (r *Registry) Unregister(uid domain.UserID, cid core.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok {
		return
	}
	if e.UserID != uid {
		panic(fmt.Sprintf("registry: connection %s owned by %s, unregister asked for %s", cid, e.UserID, uid))
	}
	delete(r.conns, cid)
	if set, ok := r.byUser[uid]; ok {
		delete(set, cid)
		if len(set) == 0 {
			delete(r.byUser, uid)
		}
	}
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Str("user", string(uid)).Msg("unregistered connection")
}

func (r *Registry) IsOnline(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[uid]
	return ok
}

func (r *Registry) ConnectionsOf(uid domain.UserID) []core.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[uid]
	out := make([]core.ConnectionID, 0, len(set))
	for cid := range set {
		out = append(out, cid)
	}
	return out
}

func (r *Registry) Endpoint(cid core.ConnectionID) (core.Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok {
		return core.Endpoint{}, false
	}
	return e.endpoint(cid), true
}

func (r *Registry) Endpoints() []core.Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Endpoint, 0, len(r.conns))
	for cid, e := range r.conns {
		out = append(out, e.endpoint(cid))
	}
	return out
}

func (r *Registry) OnlineUsers() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.byUser))
	for uid := range r.byUser {
		out = append(out, uid)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
