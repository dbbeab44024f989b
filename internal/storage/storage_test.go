package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/model"
)

type fakeStore struct {
	objects    map[string][]byte
	presignErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(_ context.Context, objectPath string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[objectPath] = data
	return nil
}

func (f *fakeStore) PresignedGet(_ context.Context, objectPath string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://store.local/" + objectPath + "?sig=abc", nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for p := range f.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestObjectPathByCategory(t *testing.T) {
	cases := []struct {
		fileType string
		fileName string
		prefix   string
		suffix   string
	}{
		{model.FileTypeLecture, "slides.pdf", "system/lectures/", ".pdf"},
		{model.FileTypeReport, "week.xlsx", "system/activity_reports/", ".xlsx"},
		{model.FileTypeTranscript, "x", "system/transcripts/", ".txt"},
		{model.FileTypeUserUpload, "photo.PNG", "uploads/users/", ".PNG"},
		{model.FileTypeUserUpload, "noext", "uploads/users/", ".bin"},
	}
	for _, tc := range cases {
		got := ObjectPath(tc.fileType, tc.fileName)
		if !strings.HasPrefix(got, tc.prefix) {
			t.Errorf("%s: path %q missing prefix %q", tc.fileType, got, tc.prefix)
		}
		if !strings.HasSuffix(got, tc.suffix) {
			t.Errorf("%s: path %q missing suffix %q", tc.fileType, got, tc.suffix)
		}
	}
}

func TestSaveReturnsPresignedURL(t *testing.T) {
	store := newFakeStore()
	res, err := Save(context.Background(), store, model.FileTypeUserUpload, "notes.txt",
		bytes.NewReader([]byte("content")), 7, "text/plain", time.Hour)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if string(store.objects[res.Path]) != "content" {
		t.Errorf("stored content %q", store.objects[res.Path])
	}
	if res.URL == nil || !strings.Contains(*res.URL, res.Path) {
		t.Errorf("presigned URL = %v", res.URL)
	}
}

func TestSaveDegradesToNilURLOnPresignFailure(t *testing.T) {
	store := newFakeStore()
	store.presignErr = errors.New("presign unavailable")

	res, err := Save(context.Background(), store, model.FileTypeUserUpload, "notes.txt",
		bytes.NewReader([]byte("content")), 7, "text/plain", time.Hour)
	if err != nil {
		t.Fatalf("save should not fail on presign error: %v", err)
	}
	if res.URL != nil {
		t.Errorf("URL should be nil, got %q", *res.URL)
	}
}
