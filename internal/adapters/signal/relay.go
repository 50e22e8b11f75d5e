package signal

import (
	"encoding/json"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleTyping(sess *app.Session, data json.RawMessage, started bool) {
	var cmd domain.TypingCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad typing payload")
		ctl.sendError(sess, codeBadPayload, "typing payload must be an object")
		return
	}
	if _, err := ctl.Orch.Typing(sess, cmd, started); err != nil {
		ctl.reportError(sess, err)
	}
}

func (ctl *SignalWSController) handleEditing(sess *app.Session, data json.RawMessage) {
	var cmd domain.EditingCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad editing payload")
		ctl.sendError(sess, codeBadPayload, "editing payload must be an object")
		return
	}
	if _, err := ctl.Orch.Edit(sess, cmd); err != nil {
		ctl.reportError(sess, err)
	}
}

func (ctl *SignalWSController) handleRunStarted(sess *app.Session, data json.RawMessage) {
	var cmd domain.RunStartedCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad run payload")
		ctl.sendError(sess, codeBadPayload, "run payload must be an object")
		return
	}
	res, err := ctl.Orch.RunStarted(sess, cmd)
	if err != nil {
		ctl.reportError(sess, err)
		return
	}
	log.Info().Str("module", "signal").Str("run", cmd.TestRunID).Str("room", string(cmd.ProjectID)).Int("sent_to", res.SendTo).Msg("test run started")
}
