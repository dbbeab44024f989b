package handler

import (
	"net/http"
	"path"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/Turbi-kon/online-school-backend/internal/service"
	"github.com/Turbi-kon/online-school-backend/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// iconURLTTL is the lifetime of presigned links in the icon listing.
const iconURLTTL = 24 * time.Hour

// UploadHandler handles file uploads to object storage and the system
// icon listing.
type UploadHandler struct {
	store      storage.ObjectStore
	files      service.FileStore
	presignTTL time.Duration
	logger     *zap.Logger
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(store storage.ObjectStore, files service.FileStore, presignTTL time.Duration, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, files: files, presignTTL: presignTTL, logger: logger}
}

// Upload godoc
// POST /files — multipart form: "file" plus optional "file_type"
// (lecture | report | user_upload, default user_upload). Lecture and
// report uploads require teacher/admin.
func (h *UploadHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}

	fileType := c.PostForm("file_type")
	switch fileType {
	case "":
		fileType = model.FileTypeUserUpload
	case model.FileTypeUserUpload:
	case model.FileTypeLecture, model.FileTypeReport:
		if !currentUser(c).IsPrivileged() {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown file_type"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer src.Close()

	contentType := header.Header.Get("Content-Type")
	res, err := storage.Save(c.Request.Context(), h.store, fileType, header.Filename, src, header.Size, contentType, h.presignTTL)
	if err != nil {
		h.logger.Error("upload failed", zap.String("file", header.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	user := currentUser(c)
	record := &model.UploadedFile{
		UserID:   &user.ID,
		FileName: header.Filename,
		FileType: fileType,
		Path:     res.Path,
	}
	if err := h.files.CreateFile(c.Request.Context(), record); err != nil {
		h.logger.Error("file record create failed", zap.String("path", res.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":    "uploaded",
		"file_name": record.FileName,
		"path":      record.Path,
		"url":       res.URL,
		"is_image":  record.IsImage(),
	})
}

// Icons godoc
// GET /files/icons — notification icons available in the bucket, with
// short-lived download links. Objects that fail to presign are skipped.
func (h *UploadHandler) Icons(c *gin.Context) {
	paths, err := h.store.List(c.Request.Context(), storage.IconPrefix)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list icons"})
		return
	}
	icons := make([]gin.H, 0, len(paths))
	for _, p := range paths {
		url, err := h.store.PresignedGet(c.Request.Context(), p, iconURLTTL)
		if err != nil {
			h.logger.Warn("icon presign failed", zap.String("path", p), zap.Error(err))
			continue
		}
		icons = append(icons, gin.H{"name": path.Base(p), "url": url})
	}
	c.JSON(http.StatusOK, gin.H{"icons": icons})
}
