package router

import (
	"net/http"

	"github.com/Turbi-kon/online-school-backend/internal/auth"
	"github.com/Turbi-kon/online-school-backend/internal/handler"
	"github.com/Turbi-kon/online-school-backend/pkg/constants"
	"github.com/gin-gonic/gin"
)

// New builds the HTTP router.
func New(
	verifier auth.TokenVerifier,
	channels *handler.ChannelHandler,
	uploads *handler.UploadHandler,
	notifications *handler.NotificationHandler,
	transcribe *handler.TranscribeHandler,
	ws *handler.WSHandler,
	health *handler.HealthHandler,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	authed := r.Group("/", handler.AuthMiddleware(verifier))

	// REST channels
	ch := authed.Group("/channels")
	{
		ch.GET("", channels.List)
		ch.POST("", channels.Create)
		ch.GET("/:id", channels.Get)
		ch.PATCH("/:id", channels.Update)
		ch.DELETE("/:id", channels.Delete)
		ch.POST("/:id/join", channels.Join)
		ch.POST("/:id/leave", channels.Leave)
		ch.GET("/:id/participants", channels.Participants)
		ch.GET("/:id/streams", channels.Streams)
		ch.GET("/:id/messages", channels.Messages)
	}

	// Files and notification icons
	files := authed.Group("/files")
	{
		files.POST("", uploads.Upload)
		files.GET("/icons", uploads.Icons)
	}

	// Announcements
	notif := authed.Group("/notifications")
	{
		notif.POST("", notifications.Create)
		notif.GET("", notifications.List)
	}

	// Lecture transcription
	tr := authed.Group("/transcribe")
	{
		tr.POST("/start", transcribe.Start)
		tr.POST("/:id/chunk", transcribe.Chunk)
		tr.POST("/:id/finish", transcribe.Finish)
	}

	// WebSocket: token goes in the query string, auth is handled inside
	// the gateway (unauthenticated channel connections stay read-only).
	r.GET("/ws/channel/:id", ws.ServeChannel)
	r.GET("/ws/notifications", ws.ServeNotifications)

	return r
}
