package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/auth"
	"github.com/dkeye/Presence/internal/config"
	"github.com/dkeye/Presence/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Settings are the per-connection transport limits.
type Settings struct {
	ReadLimit        int64
	PingPeriod       time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	SendBuffer       int
	HandshakeTimeout time.Duration
	RateLimit        int
	RateInterval     time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		ReadLimit:        32768,
		PingPeriod:       54 * time.Second,
		PongWait:         60 * time.Second,
		WriteWait:        10 * time.Second,
		SendBuffer:       64,
		HandshakeTimeout: 10 * time.Second,
		RateLimit:        20,
		RateInterval:     time.Second,
	}
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ReadLimit:        cfg.ReadLimit,
		PingPeriod:       cfg.PingPeriod,
		PongWait:         cfg.PongWait,
		WriteWait:        cfg.WriteWait,
		SendBuffer:       cfg.SendBuffer,
		HandshakeTimeout: cfg.HandshakeTimeout,
		RateLimit:        cfg.RateLimit,
		RateInterval:     cfg.RateInterval,
	}
}

// SessionTokenKey is the gin context key under which the HTTP layer stores a
// token taken from the cookie session.
const SessionTokenKey = "session_token"

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Settings Settings
	Limiter  *RoomRateLimiter

	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, s Settings) *SignalWSController {
	return &SignalWSController{
		Orch:     o,
		Settings: s,
		Limiter:  NewRoomRateLimiter(s.RateLimit, s.RateInterval),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WsSignalConn queues frames for the write pump. Close stops accepting
// frames; the write pump drains what is queued and closes the socket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// HandleSignal authenticates before upgrading. A rejected credential gets a
// plain 401 and never reaches the websocket layer.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	cred := credentialFrom(c.Request, c.GetString(SessionTokenKey))

	actx, cancel := context.WithTimeout(c.Request.Context(), ctl.Settings.HandshakeTimeout)
	sess, err := ctl.Orch.Authenticate(actx, cred.Token)
	cancel()
	if err != nil {
		log.Info().Str("module", "signal").Str("source", string(cred.Source)).Err(err).Msg("unauthorized ws handshake")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":  "unauthorized",
			"reason": auth.Reason(err),
		})
		return
	}

	var header http.Header
	if cred.Source == sourceSubprotocol {
		header = http.Header{"Sec-Websocket-Protocol": []string{cred.Protocol}}
	}
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		ctl.Orch.Close(sess)
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.Settings.SendBuffer)
	if err := ctl.Orch.Activate(sess, conn); err != nil {
		ctl.Orch.Close(sess)
		_ = ws.Close()
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("activate session")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("user", string(sess.UserID())).Msg("new WS connection")

	ctx, stop := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, stop, sess, conn)
}
