package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/bus"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"go.uber.org/zap"
)

type fakeMessageStore struct {
	messages []*model.Message
	nextID   uint
}

func (f *fakeMessageStore) CreateMessage(_ context.Context, msg *model.Message) error {
	f.nextID++
	msg.ID = f.nextID
	msg.Timestamp = time.Now()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMessageStore) ListMessages(_ context.Context, channelID uint) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.messages {
		if m.ChannelID == channelID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeFileStore struct {
	files []*model.UploadedFile
}

func (f *fakeFileStore) CreateFile(_ context.Context, file *model.UploadedFile) error {
	file.ID = uint(len(f.files) + 1)
	f.files = append(f.files, file)
	return nil
}

type fakePresigner struct {
	err error
}

func (f *fakePresigner) Put(context.Context, string, io.Reader, int64, string) error { return nil }
func (f *fakePresigner) List(context.Context, string) ([]string, error)              { return nil, nil }
func (f *fakePresigner) PresignedGet(_ context.Context, path string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://store.local/" + path, nil
}

func chatFixture(presignErr error) (*ChatService, *fakeMessageStore, *bus.Memory) {
	msgs := &fakeMessageStore{}
	files := &fakeFileStore{}
	b := bus.NewMemory(zap.NewNop())
	svc := NewChatService(msgs, files, &fakePresigner{err: presignErr}, b, time.Hour, zap.NewNop())
	return svc, msgs, b
}

func TestPostMessagePersistsAndPublishes(t *testing.T) {
	svc, msgs, b := chatFixture(nil)
	sub, _ := b.Subscribe(bus.ChannelTopic(1))
	sender := &model.User{ID: 3, Username: "alice", Name: "Alice"}

	view, err := svc.PostMessage(context.Background(), 1, sender, "hi there", "", "")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if view.Sender.Name != "Alice" || view.Content != "hi there" {
		t.Errorf("view = %+v", view)
	}
	if len(msgs.messages) != 1 {
		t.Fatalf("persisted %d messages, want 1", len(msgs.messages))
	}

	select {
	case payload := <-sub.C:
		var ev model.ChatMessageEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Type != model.EventChatMessage || ev.Message.Content != "hi there" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no chat_message event on channel topic")
	}
}

func TestPostMessageWithFileHydratesURL(t *testing.T) {
	svc, _, b := chatFixture(nil)
	sub, _ := b.Subscribe(bus.ChannelTopic(1))
	sender := &model.User{ID: 3, Username: "alice", Name: "Alice"}

	view, err := svc.PostMessage(context.Background(), 1, sender, "see attachment",
		"uploads/users/abc.png", "diagram.png")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	f := view.UploadedFile
	if f == nil {
		t.Fatal("no file on view")
	}
	if f.URL == nil || *f.URL != "https://store.local/uploads/users/abc.png" {
		t.Errorf("URL = %v", f.URL)
	}
	if !f.IsImage {
		t.Error("png should be flagged as image")
	}
	<-sub.C
}

func TestPostMessagePresignFailureDegradesToNullURL(t *testing.T) {
	svc, _, _ := chatFixture(errors.New("presign down"))
	sender := &model.User{ID: 3, Username: "alice", Name: "Alice"}

	view, err := svc.PostMessage(context.Background(), 1, sender, "text",
		"uploads/users/abc.pdf", "notes.pdf")
	if err != nil {
		t.Fatalf("post should not fail on presign error: %v", err)
	}
	if view.UploadedFile == nil {
		t.Fatal("file metadata should survive presign failure")
	}
	if view.UploadedFile.URL != nil {
		t.Errorf("URL should be nil, got %q", *view.UploadedFile.URL)
	}
}

func TestPostMessageRejectsEmptyText(t *testing.T) {
	svc, msgs, _ := chatFixture(nil)
	if _, err := svc.PostMessage(context.Background(), 1, &model.User{ID: 1}, "", "", ""); err == nil {
		t.Error("empty text should be rejected")
	}
	if len(msgs.messages) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestHistoryReturnsChannelMessages(t *testing.T) {
	svc, _, _ := chatFixture(nil)
	sender := &model.User{ID: 3, Username: "alice", Name: "Alice"}
	ctx := context.Background()

	for _, text := range []string{"one", "two"} {
		if _, err := svc.PostMessage(ctx, 1, sender, text, "", ""); err != nil {
			t.Fatalf("post %q: %v", text, err)
		}
	}
	if _, err := svc.PostMessage(ctx, 2, sender, "other channel", "", ""); err != nil {
		t.Fatalf("post: %v", err)
	}

	history, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Content != "one" || history[1].Content != "two" {
		t.Errorf("history = %+v", history)
	}
}
