package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/auth"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch     *orch.Orchestrator
	notifier *app.Notifier
}

type LoginRequest struct {
	Token string `json:"token"`
}

type ProjectEventRequest struct {
	Event domain.EventName `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

type PublishResponse struct {
	SentTo  int                 `json:"sentTo"`
	Dropped []core.ConnectionID `json:"dropped"`
}

func newPublishResponse(res core.PublishResult) PublishResponse {
	dropped := res.Dropped
	if dropped == nil {
		dropped = []core.ConnectionID{}
	}
	return PublishResponse{SentTo: res.SendTo, Dropped: dropped}
}

type PresenceResponse struct {
	UserID      domain.UserID   `json:"userId"`
	Online      bool            `json:"online"`
	Connections int             `json:"connections"`
	Projects    []domain.RoomID `json:"projects"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.orch.Registry.Count(),
		"users":       len(h.orch.Registry.OnlineUsers()),
	})
}

// login verifies a token and keeps it in the cookie session so browser
// clients can open the websocket without passing it again.
func (h *handlers) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid token"})
		return
	}
	id, err := h.orch.Verifier.Verify(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "reason": auth.Reason(err)})
		return
	}
	s := sessions.Default(c)
	s.Set(sessionTokenKey, req.Token)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	c.JSON(http.StatusOK, id)
}

func (h *handlers) logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Delete(sessionTokenKey)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("clear session")
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) sendNotification(c *gin.Context) {
	var n domain.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification"})
		return
	}
	res, err := h.notifier.SendNotification(n)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, newPublishResponse(res))
}

func (h *handlers) broadcastToProject(c *gin.Context) {
	var req ProjectEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}
	res, err := h.notifier.BroadcastToProject(domain.RoomID(c.Param("id")), req.Event, req.Data)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, app.ErrEventNameEmpty) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, newPublishResponse(res))
}

func (h *handlers) listProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"projects": h.orch.Rooms.List()})
}

func (h *handlers) projectMembers(c *gin.Context) {
	room, err := domain.ParseRoomID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uids := h.orch.Rooms.MembersOf(room)
	members := make([]domain.Member, 0, len(uids))
	for _, uid := range uids {
		members = append(members, domain.Member{UserID: uid, Connections: h.orch.Refs(uid, room)})
	}
	c.JSON(http.StatusOK, gin.H{"projectId": room, "members": members})
}

func (h *handlers) projectMember(c *gin.Context) {
	room, err := domain.ParseRoomID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := domain.UserID(c.Param("userId"))
	if !h.orch.Rooms.IsMember(room, uid) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a member"})
		return
	}
	c.JSON(http.StatusOK, domain.Member{UserID: uid, Connections: h.orch.Refs(uid, room)})
}

func (h *handlers) presence(c *gin.Context) {
	uid := domain.UserID(c.Param("userId"))
	c.JSON(http.StatusOK, PresenceResponse{
		UserID:      uid,
		Online:      h.orch.Registry.IsOnline(uid),
		Connections: len(h.orch.Registry.ConnectionsOf(uid)),
		Projects:    h.orch.Rooms.RoomsOf(uid),
	})
}

// kickUser closes every connection of the user; teardown runs as usual.
func (h *handlers) kickUser(c *gin.Context) {
	uid := domain.UserID(c.Param("userId"))
	n := h.orch.Kick(uid)
	c.JSON(http.StatusOK, gin.H{"userId": uid, "closed": n})
}
