package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

var errProjectID = errors.New("data must be a project id string")

// decodeProjectID accepts the bare string form and {"projectId": "..."}.
func decodeProjectID(data json.RawMessage) (domain.RoomID, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var obj struct {
			ProjectID string `json:"projectId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", errProjectID
		}
		raw = obj.ProjectID
	}
	return domain.ParseRoomID(raw)
}

func (ctl *SignalWSController) handleJoin(sess *app.Session, data json.RawMessage) {
	room, err := decodeProjectID(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad join payload")
		ctl.reportError(sess, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("room", string(room)).Msg("join")
	if err := ctl.Orch.Join(sess, room); err != nil {
		ctl.reportError(sess, err)
	}
}

// handleLeave leaves one room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sess *app.Session, data json.RawMessage) {
	room, err := decodeProjectID(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad leave payload")
		ctl.reportError(sess, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("room", string(room)).Msg("leave")
	if err := ctl.Orch.Leave(sess, room); err != nil {
		ctl.reportError(sess, err)
	}
}
