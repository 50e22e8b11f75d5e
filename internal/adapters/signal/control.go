package signal

import "github.com/dkeye/Presence/internal/app"

func (ctl *SignalWSController) handlePing(sess *app.Session) {
	if err := ctl.Orch.Ping(sess); err != nil {
		ctl.reportError(sess, err)
	}
}
