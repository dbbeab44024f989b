package handler

import (
	"errors"
	"net/http"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/transcribe"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TranscribeHandler handles REST API for lecture transcription sessions.
type TranscribeHandler struct {
	mgr       *transcribe.Manager
	maxUpload int64
	logger    *zap.Logger
}

// NewTranscribeHandler creates a transcription handler.
func NewTranscribeHandler(mgr *transcribe.Manager, maxUpload int64, logger *zap.Logger) *TranscribeHandler {
	return &TranscribeHandler{mgr: mgr, maxUpload: maxUpload, logger: logger}
}

// Start godoc
// POST /transcribe/start (teacher/admin only)
func (h *TranscribeHandler) Start(c *gin.Context) {
	if !currentUser(c).IsPrivileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}
	id, err := h.mgr.Start()
	if err != nil {
		h.logger.Error("transcription start failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

// Chunk godoc
// POST /transcribe/:id/chunk — multipart form "audio" with a webm chunk.
// A lock timeout means the chunk was dropped and may be resent.
func (h *TranscribeHandler) Chunk(c *gin.Context) {
	if !currentUser(c).IsPrivileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}
	sessionID := c.Param("id")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	header, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio chunk required"})
		return
	}
	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio chunk"})
		return
	}
	defer src.Close()

	err = h.mgr.SubmitChunk(c.Request.Context(), sessionID, src)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, errs.ErrLockTimeout):
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session busy, retry"})
		case errors.Is(err, errs.ErrConversionFailed), errors.Is(err, errs.ErrTranscriptionFailed):
			h.logger.Warn("chunk processing failed", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to process audio chunk"})
		default:
			h.logger.Error("chunk failed", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process audio chunk"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// Finish godoc
// POST /transcribe/:id/finish — uploads the accumulated transcript and
// closes the session. On upload failure the session stays open so finish
// can be retried.
func (h *TranscribeHandler) Finish(c *gin.Context) {
	if !currentUser(c).IsPrivileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}
	sessionID := c.Param("id")
	url, err := h.mgr.Finish(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, errs.ErrLockTimeout):
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session busy, retry"})
		default:
			h.logger.Error("finish failed", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to finish session"})
		}
		return
	}
	resp := gin.H{"status": "finished"}
	if url != "" {
		resp["url"] = url
	}
	c.JSON(http.StatusOK, resp)
}
