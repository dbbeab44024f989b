package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/Turbi-kon/online-school-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ChannelHandler handles REST API for channels: CRUD, membership and
// chat history.
type ChannelHandler struct {
	svc  *service.ChannelService
	chat *service.ChatService
}

// NewChannelHandler creates a channel handler.
func NewChannelHandler(svc *service.ChannelService, chat *service.ChatService) *ChannelHandler {
	return &ChannelHandler{svc: svc, chat: chat}
}

func channelID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return 0, false
	}
	return uint(id), true
}

// List godoc
// GET /channels — channels visible to the caller (students see only
// channels open to their group).
func (h *ChannelHandler) List(c *gin.Context) {
	views, err := h.svc.ListForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
		return
	}
	c.JSON(http.StatusOK, views)
}

// Create godoc
// POST /channels (teacher/admin only)
func (h *ChannelHandler) Create(c *gin.Context) {
	var req model.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	view, err := h.svc.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		if errors.Is(err, errs.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create channel"})
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Get godoc
// GET /channels/:id
func (h *ChannelHandler) Get(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	view, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get channel"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Update godoc
// PATCH /channels/:id (teacher/admin only)
func (h *ChannelHandler) Update(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	var req model.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	view, err := h.svc.Update(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		case errors.Is(err, errs.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update channel"})
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete godoc
// DELETE /channels/:id (teacher/admin only)
func (h *ChannelHandler) Delete(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		switch {
		case errors.Is(err, errs.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		case errors.Is(err, errs.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete channel"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// Join godoc
// POST /channels/:id/join — same admission rules as the WebSocket entry.
func (h *ChannelHandler) Join(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	err := h.svc.Join(c.Request.Context(), id, currentUser(c))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		case errors.Is(err, errs.ErrChannelFull):
			c.JSON(http.StatusForbidden, gin.H{"error": "channel is full"})
		case errors.Is(err, errs.ErrGroupNotAllowed):
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied for your group"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join channel"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

// Leave godoc
// POST /channels/:id/leave — idempotent.
func (h *ChannelHandler) Leave(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	if err := h.svc.Leave(c.Request.Context(), id, currentUser(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave channel"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// Participants godoc
// GET /channels/:id/participants
func (h *ChannelHandler) Participants(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": h.svc.Participants(id)})
}

// Streams godoc
// GET /channels/:id/streams — current media state of everyone streaming.
func (h *ChannelHandler) Streams(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"streams": h.svc.Streams(id)})
}

// Messages godoc
// GET /channels/:id/messages — chat history in send order.
func (h *ChannelHandler) Messages(c *gin.Context) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	views, err := h.chat.History(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, views)
}
