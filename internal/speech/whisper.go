package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"go.uber.org/zap"
)

// WhisperClient calls a whisper inference server over HTTP. The server
// accepts a multipart "file" field and answers {"text": "..."}.
type WhisperClient struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// NewWhisperClient creates an inference client for the given endpoint.
func NewWhisperClient(url string, log *zap.Logger) *WhisperClient {
	return &WhisperClient{
		url:    url,
		client: &http.Client{Timeout: 2 * time.Minute},
		log:    log,
	}
}

// Transcribe uploads the converted audio and returns the recognized text,
// trimmed. Inference service errors surface as ErrTranscriptionFailed.
func (w *WhisperClient) Transcribe(ctx context.Context, wavPath string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrTranscriptionFailed, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(wavPath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, pr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrTranscriptionFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		w.log.Warn("speech: inference server error",
			zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: inference status %d", errs.ErrTranscriptionFailed, resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", errs.ErrTranscriptionFailed, err)
	}
	return strings.TrimSpace(out.Text), nil
}
