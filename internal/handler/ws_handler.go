package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/gateway"
	"github.com/Turbi-kon/online-school-backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WSHandler upgrades channel and notification WebSocket connections and
// hands them to the gateway.
type WSHandler struct {
	gw       *gateway.Gateway
	channels *service.ChannelService
	logger   *zap.Logger
}

// NewWSHandler creates the WebSocket handler.
func NewWSHandler(gw *gateway.Gateway, channels *service.ChannelService, logger *zap.Logger) *WSHandler {
	return &WSHandler{gw: gw, channels: channels, logger: logger}
}

// ServeChannel godoc
// GET /ws/channel/:id?token=... — a missing channel is rejected before
// the upgrade; a missing or invalid token downgrades to read-only inside
// the gateway.
func (h *WSHandler) ServeChannel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	channel, err := h.channels.GetEntity(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, errs.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get channel"})
		return
	}

	conn, err := h.gw.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	h.gw.ServeChannel(c.Request.Context(), conn, channel, c.Query("token"))
}

// ServeNotifications godoc
// GET /ws/notifications?token=... — personal push feed; a valid token is
// required and the connection is closed otherwise.
func (h *WSHandler) ServeNotifications(c *gin.Context) {
	conn, err := h.gw.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	h.gw.ServeNotifications(c.Request.Context(), conn, c.Query("token"))
}
