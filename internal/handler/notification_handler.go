package handler

import (
	"net/http"

	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/Turbi-kon/online-school-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles REST API for announcements.
type NotificationHandler struct {
	svc *service.Notifier
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(svc *service.Notifier) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// Create godoc
// POST /notifications (teacher/admin only). The announcement is persisted
// and pushed to every targeted student's notification socket.
func (h *NotificationHandler) Create(c *gin.Context) {
	if !currentUser(c).IsPrivileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}
	var req model.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	notif, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create notification"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created", "id": notif.ID})
}

// List godoc
// GET /notifications — students see broadcasts plus their group's
// announcements; teachers and admins see everything.
func (h *NotificationHandler) List(c *gin.Context) {
	views, err := h.svc.List(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, views)
}
