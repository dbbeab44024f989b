// Package storage wraps the external object store. Uploads land under
// category-specific prefixes and downloads go through time-limited
// presigned links.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/google/uuid"
)

// ObjectStore is the durable blob backend. Presigned URL generation is
// best-effort: callers treat a nil URL as "no link available".
type ObjectStore interface {
	Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error
	PresignedGet(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// IconPrefix is where notification icons live in the bucket.
const IconPrefix = "system/icons/"

// ObjectPath builds the storage path for a file of the given category.
func ObjectPath(fileType, fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = "bin"
	}
	now := time.Now()
	switch fileType {
	case model.FileTypeLecture:
		return fmt.Sprintf("system/lectures/lecture_%s.%s", now.Format("02.01.2006"), ext)
	case model.FileTypeReport:
		return fmt.Sprintf("system/activity_reports/report_%s.%s", now.Format("02.01.2006"), ext)
	case model.FileTypeTranscript:
		return fmt.Sprintf("system/transcripts/transcript_%s_%s.txt",
			now.Format("2006-01-02"), uuid.New().String()[:6])
	default:
		return fmt.Sprintf("uploads/users/%s.%s", uuid.New(), ext)
	}
}

// SaveResult describes a completed upload. URL is nil when presigning
// failed; the upload itself still succeeded.
type SaveResult struct {
	Path string
	URL  *string
}

// Save uploads the content and presigns a download link for it. An upload
// failure is returned; a presign failure only degrades URL to nil.
func Save(ctx context.Context, store ObjectStore, fileType, fileName string, r io.Reader, size int64, contentType string, presignTTL time.Duration) (*SaveResult, error) {
	objectPath := ObjectPath(fileType, fileName)
	if err := store.Put(ctx, objectPath, r, size, contentType); err != nil {
		return nil, fmt.Errorf("storage: put %s: %w", objectPath, err)
	}
	res := &SaveResult{Path: objectPath}
	if url, err := store.PresignedGet(ctx, objectPath, presignTTL); err == nil {
		res.URL = &url
	}
	return res, nil
}
