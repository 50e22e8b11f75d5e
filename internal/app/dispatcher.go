package app

import (
	"errors"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

// Dispatcher resolves an envelope's target into connections and hands the
// encoded frame to each one. It only reads from the registry and tracker.
type Dispatcher struct {
	Conns  core.ConnectionDirectory
	Rooms  core.MembershipReader
	Policy Policy
}

func NewDispatcher(conns core.ConnectionDirectory, rooms core.MembershipReader, policy Policy) *Dispatcher {
	return &Dispatcher{Conns: conns, Rooms: rooms, Policy: policy}
}

// Dispatch never fails towards the caller. Unreachable targets are logged
// and skipped so the remaining targets still get the frame.
func (d *Dispatcher) Dispatch(env core.Envelope) core.PublishResult {
	res := core.PublishResult{}
	frame, err := core.EncodeEvent(env.Payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Msg("encode event")
		return res
	}
	targets := d.resolve(env.Target)
	for _, ep := range targets {
		if ep.ID == env.Target.Except {
			continue
		}
		if ep.Signal == nil {
			continue
		}
		if err := ep.Signal.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, ep.ID)
			d.onDeliveryError(ep, err)
			continue
		}
		res.SendTo++
	}
	log.Debug().
		Str("module", "app.dispatch").
		Str("event", string(env.Payload.EventName())).
		Int("targets", len(targets)).
		Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).
		Msg("dispatch result")
	return res
}

func (d *Dispatcher) resolve(t core.Target) []core.Endpoint {
	switch t.Kind {
	case core.TargetBroadcast:
		return d.Conns.Endpoints()
	case core.TargetUser:
		return d.endpointsOf(t.User, nil)
	case core.TargetRooms:
		seen := make(map[core.ConnectionID]struct{})
		users := make(map[domain.UserID]struct{})
		var out []core.Endpoint
		for _, room := range t.Rooms {
			for _, uid := range d.Rooms.MembersOf(room) {
				if _, ok := users[uid]; ok {
					continue
				}
				users[uid] = struct{}{}
				for _, ep := range d.endpointsOf(uid, seen) {
					if ep.InAnyRoom(t.Rooms) {
						out = append(out, ep)
					}
				}
			}
		}
		return out
	}
	return nil
}

func (d *Dispatcher) endpointsOf(uid domain.UserID, seen map[core.ConnectionID]struct{}) []core.Endpoint {
	ids := d.Conns.ConnectionsOf(uid)
	out := make([]core.Endpoint, 0, len(ids))
	for _, cid := range ids {
		if seen != nil {
			if _, ok := seen[cid]; ok {
				continue
			}
			seen[cid] = struct{}{}
		}
		// A connection may be torn down between the two lookups.
		ep, ok := d.Conns.Endpoint(cid)
		if !ok {
			continue
		}
		out = append(out, ep)
	}
	return out
}

func (d *Dispatcher) onDeliveryError(ep core.Endpoint, err error) {
	logger := log.With().Str("module", "app.dispatch").Str("sid", string(ep.ID)).Str("user", string(ep.UserID)).Logger()
	if errors.Is(err, core.ErrConnectionClosed) {
		logger.Debug().Err(err).Msg("target closing, frame skipped")
		return
	}
	logger.Warn().Err(err).Msg("delivery failed")
	if !errors.Is(err, core.ErrBackpressure) || d.Policy == nil {
		return
	}
	switch d.Policy.OnBackPressure(ep) {
	case KickMember:
		logger.Warn().Msg("slow consumer, closing connection")
		ep.Signal.Close()
	case DropFrame, NoAction:
	}
}
