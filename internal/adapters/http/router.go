package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/dkeye/Presence/internal/adapters/signal"
	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionName     = "PresenceSessions"
	sessionTokenKey = "token"
	apiKeyHeader    = "X-API-Key"
)

// SessionTokenMiddleware exposes a token stored in the cookie session to the
// websocket handshake as its last-resort credential.
func SessionTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok && tok != "" {
			c.Set(signal.SessionTokenKey, tok)
		}
		c.Next()
	}
}

// APIKeyMiddleware guards the service-to-service routes. An empty key leaves
// them open, which is only meant for local development.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, notifier *app.Notifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no cookie secret configured, sessions will not survive a restart")
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	log.Info().Str("module", "adapters.http").Bool("api_key", cfg.APIKey != "").Msg("router setup")

	ctrl := signal.NewSignalWSController(o, signal.SettingsFromConfig(cfg))
	h := &handlers{orch: o, notifier: notifier}

	api := r.Group("/api")
	api.GET("/health", h.health)

	api.POST("/session", h.login)
	api.DELETE("/session", h.logout)

	api.GET("/ws", SessionTokenMiddleware(), func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	internal := api.Group("", APIKeyMiddleware(cfg.APIKey))
	internal.POST("/notifications", h.sendNotification)
	internal.GET("/projects", h.listProjects)
	internal.POST("/projects/:id/events", h.broadcastToProject)
	internal.GET("/projects/:id/members", h.projectMembers)
	internal.GET("/projects/:id/members/:userId", h.projectMember)
	internal.GET("/presence/:userId", h.presence)
	internal.DELETE("/users/:userId/connections", h.kickUser)

	return r
}
