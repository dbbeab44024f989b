package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/bus"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/Turbi-kon/online-school-backend/internal/storage"
	"go.uber.org/zap"
)

// ChatService persists chat messages and fans them out to the channel
// topic, fully hydrated.
type ChatService struct {
	messages   MessageStore
	files      FileStore
	store      storage.ObjectStore
	bus        bus.Bus
	presignTTL time.Duration
	log        *zap.Logger
}

// NewChatService creates the chat pipeline.
func NewChatService(messages MessageStore, files FileStore, store storage.ObjectStore, b bus.Bus, presignTTL time.Duration, log *zap.Logger) *ChatService {
	return &ChatService{
		messages:   messages,
		files:      files,
		store:      store,
		bus:        b,
		presignTTL: presignTTL,
		log:        log,
	}
}

// PostMessage persists the message (recording the attached file reference
// first, when present) and publishes a chat_message event to the channel
// topic. Empty text never reaches this method; upstream treats it as "not
// a chat message".
func (s *ChatService) PostMessage(ctx context.Context, channelID uint, sender *model.User, text, filePath, fileName string) (*model.MessageView, error) {
	if text == "" {
		return nil, errors.New("chat: empty message")
	}

	var attached *model.UploadedFile
	if filePath != "" && fileName != "" {
		senderID := sender.ID
		attached = &model.UploadedFile{
			UserID:   &senderID,
			FileName: fileName,
			FileType: model.FileTypeUserUpload,
			Path:     filePath,
		}
		if err := s.files.CreateFile(ctx, attached); err != nil {
			return nil, fmt.Errorf("chat: record file: %w", err)
		}
	}

	msg := &model.Message{
		ChannelID: channelID,
		SenderID:  sender.ID,
		Content:   text,
	}
	if attached != nil {
		msg.UploadedFileID = &attached.ID
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("chat: persist message: %w", err)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	view := &model.MessageView{
		Sender:       sender.Info(),
		Content:      msg.Content,
		Timestamp:    msg.Timestamp,
		UploadedFile: s.fileView(ctx, attached),
	}

	payload, err := json.Marshal(model.ChatMessageEvent{
		Type:    model.EventChatMessage,
		Message: *view,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: encode event: %w", err)
	}
	if err := s.bus.Publish(ctx, bus.ChannelTopic(channelID), payload); err != nil {
		return nil, fmt.Errorf("chat: publish: %w", err)
	}
	return view, nil
}

// History returns the channel's messages ordered by timestamp ascending.
func (s *ChatService) History(ctx context.Context, channelID uint) ([]model.MessageView, error) {
	msgs, err := s.messages.ListMessages(ctx, channelID)
	if err != nil {
		return nil, err
	}
	out := make([]model.MessageView, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		out = append(out, model.MessageView{
			Sender:       m.Sender.Info(),
			Content:      m.Content,
			Timestamp:    m.Timestamp,
			UploadedFile: s.fileView(ctx, m.UploadedFile),
		})
	}
	return out, nil
}

// fileView hydrates file metadata with a presigned download link.
// Presigning is best-effort: a failure degrades the URL to null instead of
// failing the whole message.
func (s *ChatService) fileView(ctx context.Context, f *model.UploadedFile) *model.FileView {
	if f == nil {
		return nil
	}
	view := &model.FileView{
		ID:         f.ID,
		FileName:   f.FileName,
		Path:       f.Path,
		FileType:   f.FileType,
		UploadedAt: f.UploadedAt,
		IsImage:    f.IsImage(),
	}
	url, err := s.store.PresignedGet(ctx, f.Path, s.presignTTL)
	if err != nil {
		s.log.Warn("chat: presign failed", zap.String("path", f.Path), zap.Error(err))
		return view
	}
	view.URL = &url
	return view
}
