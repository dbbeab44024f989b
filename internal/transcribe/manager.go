// Package transcribe manages audio-capture sessions: chunked upload,
// conversion, speech-to-text and final assembly into a durable transcript.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/Turbi-kon/online-school-backend/internal/speech"
	"github.com/Turbi-kon/online-school-backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures the manager.
type Options struct {
	Dir        string        // transient buffer directory
	Append     bool          // append chunks instead of last-chunk-wins
	LockWait   time.Duration // bounded wait for the per-session lock
	PresignTTL time.Duration // lifetime of the returned transcript link
}

// Manager owns transcription session lifecycle. Each session has one
// file-backed text buffer and one lock; chunk processing for a session is
// strictly serialized while different sessions run fully in parallel.
type Manager struct {
	opts        Options
	converter   speech.Converter
	transcriber speech.Transcriber
	store       storage.ObjectStore
	log         *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	lock chan struct{} // capacity-1 semaphore
}

// NewManager creates a manager and ensures the buffer directory exists.
func NewManager(opts Options, conv speech.Converter, tr speech.Transcriber, store storage.ObjectStore, log *zap.Logger) (*Manager, error) {
	if opts.LockWait <= 0 {
		opts.LockWait = 5 * time.Second
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: create sessions dir: %w", err)
	}
	return &Manager{
		opts:        opts,
		converter:   conv,
		transcriber: tr,
		store:       store,
		log:         log,
		sessions:    make(map[string]*session),
	}, nil
}

// Start allocates a fresh session with an empty buffer and returns its id.
func (m *Manager) Start() (string, error) {
	id := uuid.New().String()
	if err := os.WriteFile(m.bufferPath(id), nil, 0o644); err != nil {
		return "", fmt.Errorf("transcribe: create buffer: %w", err)
	}
	m.mu.Lock()
	m.sessions[id] = &session{lock: make(chan struct{}, 1)}
	m.mu.Unlock()
	m.log.Info("transcribe: session started", zap.String("session_id", id))
	return id, nil
}

// SubmitChunk converts the raw audio, transcribes it and writes the text
// into the session buffer under the session lock. By default the buffer is
// overwritten so the last chunk wins; with Append each chunk adds a line.
// Temporary artifacts are removed on every exit path.
func (m *Manager) SubmitChunk(ctx context.Context, sessionID string, audio io.Reader) error {
	sess, ok := m.session(sessionID)
	if !ok {
		return errs.ErrSessionNotFound
	}

	raw, err := os.CreateTemp("", "chunk-*.webm")
	if err != nil {
		return fmt.Errorf("transcribe: temp file: %w", err)
	}
	defer m.removeTemp(raw.Name())
	if _, err := io.Copy(raw, audio); err != nil {
		raw.Close()
		return fmt.Errorf("transcribe: buffer upload: %w", err)
	}
	if err := raw.Close(); err != nil {
		return fmt.Errorf("transcribe: buffer upload: %w", err)
	}

	wav := raw.Name() + ".wav"
	defer m.removeTemp(wav)
	if err := m.converter.Convert(ctx, raw.Name(), wav); err != nil {
		return err
	}

	text, err := m.transcriber.Transcribe(ctx, wav)
	if err != nil {
		return err
	}

	if err := m.acquire(ctx, sess); err != nil {
		return err
	}
	defer m.release(sess)

	// The session may have finished while the chunk was in flight.
	path := m.bufferPath(sessionID)
	if _, err := os.Stat(path); err != nil {
		return errs.ErrSessionNotFound
	}
	line := strings.TrimSpace(text) + "\n"
	if m.opts.Append {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("transcribe: open buffer: %w", err)
		}
		_, werr := f.WriteString(line)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("transcribe: write buffer: %w", werr)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("transcribe: write buffer: %w", err)
	}
	return nil
}

// Finish uploads the assembled transcript to durable storage, returns its
// retrieval URL (empty when presigning degraded) and forgets the session.
// If the upload fails the session is left intact so Finish can be retried.
func (m *Manager) Finish(ctx context.Context, sessionID string) (string, error) {
	sess, ok := m.session(sessionID)
	if !ok {
		return "", errs.ErrSessionNotFound
	}
	if err := m.acquire(ctx, sess); err != nil {
		return "", err
	}
	defer m.release(sess)

	path := m.bufferPath(sessionID)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errs.ErrSessionNotFound
	}

	res, err := storage.Save(ctx, m.store, model.FileTypeTranscript, "transcript.txt",
		strings.NewReader(string(content)), int64(len(content)), "text/plain; charset=utf-8", m.opts.PresignTTL)
	if err != nil {
		return "", err
	}

	m.removeTemp(path)
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	m.log.Info("transcribe: session finished",
		zap.String("session_id", sessionID),
		zap.String("path", res.Path))
	if res.URL == nil {
		return "", nil
	}
	return *res.URL, nil
}

func (m *Manager) session(id string) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) bufferPath(id string) string {
	return filepath.Join(m.opts.Dir, id+".txt")
}

// acquire takes the session lock with a bounded wait. A timeout surfaces
// as the retryable ErrLockTimeout, not a hard failure.
func (m *Manager) acquire(ctx context.Context, s *session) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-time.After(m.opts.LockWait):
		return errs.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release(s *session) {
	<-s.lock
}

// removeTemp deletes a transient artifact. Failures cannot affect results
// already returned, so they are only logged.
func (m *Manager) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.Warn("transcribe: temp cleanup failed",
			zap.String("path", path), zap.Error(err))
	}
}
