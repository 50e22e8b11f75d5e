package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Error codes sent back to the client in an error frame.
const (
	codeBadPayload     = "bad_payload"
	codeUnknownCommand = "unknown_command"
	codeNotActive      = "not_active"
	codeRateLimited    = "rate_limited"
)

// writePump is the only writer on the socket. It owns closing it.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Settings.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(ctl.Settings.WriteWait))
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Settings.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Settings.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, stop context.CancelFunc, sess *app.Session, c *WsSignalConn) {
	sid := sess.ID()
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Close(sess)
		c.Close()
		stop()
		if uid := sess.UserID(); !ctl.Orch.Registry.IsOnline(uid) {
			ctl.Limiter.Forget(uid)
		}
	}()

	c.conn.SetReadLimit(ctl.Settings.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Settings.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(sess, data)
		}
	}
}

// handleSignal never closes the session: malformed input is answered with an
// error frame and the connection stays Active.
func (ctl *SignalWSController) handleSignal(sess *app.Session, data []byte) {
	msg, err := core.DecodeMessage(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("bad json")
		ctl.sendError(sess, codeBadPayload, "message must be a JSON object with a type")
		return
	}
	if !ctl.Limiter.Allow(sess.UserID()) {
		log.Warn().Str("module", "signal").Str("user", string(sess.UserID())).Str("type", string(msg.Type)).Msg("rate limited")
		ctl.sendError(sess, codeRateLimited, "too many messages")
		return
	}

	switch msg.Type {
	case domain.CommandJoinProject:
		ctl.handleJoin(sess, msg.Data)
	case domain.CommandLeaveProject:
		ctl.handleLeave(sess, msg.Data)
	case domain.CommandTypingStart:
		ctl.handleTyping(sess, msg.Data, true)
	case domain.CommandTypingStop:
		ctl.handleTyping(sess, msg.Data, false)
	case domain.CommandTestCaseEditing:
		ctl.handleEditing(sess, msg.Data)
	case domain.CommandTestRunStarted:
		ctl.handleRunStarted(sess, msg.Data)
	case domain.CommandPing:
		ctl.handlePing(sess)
	default:
		log.Warn().Str("module", "signal").Str("type", string(msg.Type)).Msg("unknown signal")
		ctl.sendError(sess, codeUnknownCommand, "unknown command "+string(msg.Type))
	}
}

func (ctl *SignalWSController) sendError(sess *app.Session, code, message string) {
	ctl.Orch.SendTo(sess, domain.ErrorPayload{Code: code, Message: message})
}

// reportError maps a command failure to an error frame.
func (ctl *SignalWSController) reportError(sess *app.Session, err error) {
	if errors.Is(err, orch.ErrNotActive) {
		ctl.sendError(sess, codeNotActive, "session is not active")
		return
	}
	ctl.sendError(sess, codeBadPayload, err.Error())
}
