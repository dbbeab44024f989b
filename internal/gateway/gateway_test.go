package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/bus"
	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/Turbi-kon/online-school-backend/internal/registry"
	"github.com/Turbi-kon/online-school-backend/internal/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestFilterOutboundTargetedSignal(t *testing.T) {
	payload, _ := json.Marshal(model.SignalEvent{
		Type:       model.EventSignal,
		SignalType: "offer",
		SignalData: json.RawMessage(`{"sdp":"v=0"}`),
		From:       "Alice",
		To:         "Bob",
		StreamType: "webcam",
	})
	noStream := func() bool { return false }

	out, ok := filterOutbound(payload, "Bob", noStream)
	if !ok {
		t.Fatal("recipient should receive targeted signal")
	}
	var delivered model.SignalEvent
	if err := json.Unmarshal(out, &delivered); err != nil {
		t.Fatalf("decode delivered: %v", err)
	}
	if delivered.To != "" {
		t.Error("routing field should be stripped from delivered frame")
	}
	if delivered.From != "Alice" || delivered.SignalType != "offer" {
		t.Errorf("delivered = %+v", delivered)
	}

	if _, ok := filterOutbound(payload, "Carol", noStream); ok {
		t.Error("bystander should not receive targeted signal")
	}
}

func TestFilterOutboundBroadcastSignal(t *testing.T) {
	payload, _ := json.Marshal(model.SignalEvent{
		Type:       model.EventSignal,
		SignalType: "candidate",
		From:       "Alice",
		StreamType: "screen",
	})
	for _, name := range []string{"Bob", "Carol", ""} {
		if _, ok := filterOutbound(payload, name, func() bool { return false }); !ok {
			t.Errorf("broadcast signal should reach %q", name)
		}
	}
}

func TestFilterOutboundNewParticipant(t *testing.T) {
	payload, _ := json.Marshal(model.NewParticipantEvent{
		Type:     model.EventNewParticipant,
		Username: "Alice",
	})
	if _, ok := filterOutbound(payload, "Alice", func() bool { return true }); ok {
		t.Error("joiner should never see own announcement")
	}
	if _, ok := filterOutbound(payload, "Bob", func() bool { return false }); ok {
		t.Error("non-streamer should not get new_participant")
	}
	if _, ok := filterOutbound(payload, "Bob", func() bool { return true }); !ok {
		t.Error("streamer should get new_participant")
	}
}

// --- integration fixtures ---

type fakeVerifier struct {
	byToken map[string]*model.User
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*model.User, error) {
	if u, ok := f.byToken[token]; ok {
		return u, nil
	}
	return nil, errs.ErrTokenInvalid
}

type fakeChannelStore struct {
	channel *model.Channel
}

func (f *fakeChannelStore) ListChannels(context.Context) ([]model.Channel, error) {
	return []model.Channel{*f.channel}, nil
}
func (f *fakeChannelStore) ListChannelsForGroup(context.Context, uint) ([]model.Channel, error) {
	return []model.Channel{*f.channel}, nil
}
func (f *fakeChannelStore) GetChannel(_ context.Context, id uint) (*model.Channel, error) {
	if id != f.channel.ID {
		return nil, errs.ErrChannelNotFound
	}
	return f.channel, nil
}
func (f *fakeChannelStore) CreateChannel(context.Context, *model.Channel) error { return nil }
func (f *fakeChannelStore) UpdateChannel(context.Context, *model.Channel) error { return nil }
func (f *fakeChannelStore) DeleteChannel(context.Context, uint) error           { return nil }

type fakeGroupStore struct{}

func (fakeGroupStore) FindGroupsByIDs(context.Context, []uint) ([]model.Group, error) {
	return nil, nil
}

type fakeMessageStore struct{}

func (fakeMessageStore) CreateMessage(_ context.Context, m *model.Message) error {
	m.ID = 1
	m.Timestamp = time.Now()
	return nil
}
func (fakeMessageStore) ListMessages(context.Context, uint) ([]model.Message, error) {
	return nil, nil
}

type fakeFileStore struct{}

func (fakeFileStore) CreateFile(_ context.Context, f *model.UploadedFile) error {
	f.ID = 1
	return nil
}

// presignStore is the minimal object store the chat pipeline needs.
type presignStore struct{}

func (presignStore) Put(context.Context, string, io.Reader, int64, string) error { return nil }
func (presignStore) List(context.Context, string) ([]string, error)              { return nil, nil }
func (presignStore) PresignedGet(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://store.local/" + path, nil
}

type fakeUserStore struct {
	users map[string]*model.User
}

func (f *fakeUserStore) FindUserByID(_ context.Context, id uint) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errs.ErrUserNotFound
}
func (f *fakeUserStore) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, errs.ErrUserNotFound
}
func (f *fakeUserStore) ListActiveStudents(context.Context, *uint) ([]model.User, error) {
	return nil, nil
}

type testHarness struct {
	server  *httptest.Server
	gateway *Gateway
	channel *model.Channel
}

func newHarness(t *testing.T, users ...*model.User) *testHarness {
	t.Helper()
	log := zap.NewNop()
	b := bus.NewMemory(log)
	t.Cleanup(func() { _ = b.Close() })
	reg := registry.New(nil, log)

	channel := &model.Channel{ID: 1, Name: "algebra", MaxParticipants: 50}
	channels := service.NewChannelService(&fakeChannelStore{channel: channel}, fakeGroupStore{}, reg, b, log)
	chat := service.NewChatService(fakeMessageStore{}, fakeFileStore{}, presignStore{}, b, time.Hour, log)

	byToken := make(map[string]*model.User)
	byName := make(map[string]*model.User)
	for _, u := range users {
		byToken["token-"+u.Username] = u
		byName[u.Username] = u
	}
	g := New(b, reg, channels, chat, &fakeUserStore{users: byName}, &fakeVerifier{byToken: byToken},
		Config{ReadBufferSize: 1024, WriteBufferSize: 1024, MaxMessageSize: 1 << 16}, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/channel/", func(w http.ResponseWriter, r *http.Request) {
		ws, err := g.Upgrader().Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		g.ServeChannel(r.Context(), ws, channel, r.URL.Query().Get("token"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testHarness{server: srv, gateway: g, channel: channel}
}

func (h *testHarness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/channel/1?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readEvent reads frames until one of the wanted type arrives.
func readEvent(t *testing.T, ws *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = ws.SetReadDeadline(deadline)
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %q: %v", wantType, err)
		}
		var ev map[string]any
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if ev["type"] == wantType {
			return ev
		}
	}
	t.Fatalf("no %q event before deadline", wantType)
	return nil
}

// expectNoEvent asserts that no frame of the given type arrives shortly.
func expectNoEvent(t *testing.T, ws *websocket.Conn, badType string) {
	t.Helper()
	deadline := time.Now().Add(300 * time.Millisecond)
	for {
		_ = ws.SetReadDeadline(deadline)
		_, data, err := ws.ReadMessage()
		if err != nil {
			return // timeout: nothing bad arrived
		}
		var ev map[string]any
		if json.Unmarshal(data, &ev) == nil && ev["type"] == badType {
			t.Fatalf("unexpected %q event: %v", badType, ev)
		}
	}
}

func student(id uint, username, name string) *model.User {
	return &model.User{ID: id, Username: username, Name: name, Role: model.RoleStudent, IsActive: true}
}

func TestTargetedSignalReachesOnlyRecipient(t *testing.T) {
	alice := student(1, "alice", "Alice")
	bob := student(2, "bob", "Bob")
	carol := student(3, "carol", "Carol")
	h := newHarness(t, alice, bob, carol)

	wsA := h.dial(t, "token-alice")
	wsB := h.dial(t, "token-bob")
	wsC := h.dial(t, "token-carol")
	readEvent(t, wsA, model.EventStreamsUpdate)
	readEvent(t, wsB, model.EventStreamsUpdate)
	readEvent(t, wsC, model.EventStreamsUpdate)

	err := wsA.WriteJSON(map[string]any{
		"signal_type": "offer",
		"signal_data": map[string]string{"sdp": "v=0"},
		"to":          "Bob",
	})
	if err != nil {
		t.Fatalf("write signal: %v", err)
	}

	ev := readEvent(t, wsB, model.EventSignal)
	if ev["from"] != "Alice" || ev["signal_type"] != "offer" {
		t.Errorf("signal = %v", ev)
	}
	if _, present := ev["to"]; present {
		t.Error("delivered signal should not carry routing field")
	}
	expectNoEvent(t, wsC, model.EventSignal)
}

func TestBroadcastSignalReachesAllPeers(t *testing.T) {
	alice := student(1, "alice", "Alice")
	bob := student(2, "bob", "Bob")
	carol := student(3, "carol", "Carol")
	h := newHarness(t, alice, bob, carol)

	wsA := h.dial(t, "token-alice")
	wsB := h.dial(t, "token-bob")
	wsC := h.dial(t, "token-carol")
	readEvent(t, wsA, model.EventStreamsUpdate)
	readEvent(t, wsB, model.EventStreamsUpdate)
	readEvent(t, wsC, model.EventStreamsUpdate)

	if err := wsA.WriteJSON(map[string]any{"signal_type": "candidate", "signal_data": map[string]string{}}); err != nil {
		t.Fatalf("write signal: %v", err)
	}
	readEvent(t, wsB, model.EventSignal)
	readEvent(t, wsC, model.EventSignal)
}

func TestChatMessageFansOut(t *testing.T) {
	alice := student(1, "alice", "Alice")
	bob := student(2, "bob", "Bob")
	h := newHarness(t, alice, bob)

	wsA := h.dial(t, "token-alice")
	wsB := h.dial(t, "token-bob")
	readEvent(t, wsA, model.EventStreamsUpdate)
	readEvent(t, wsB, model.EventStreamsUpdate)

	if err := wsA.WriteJSON(map[string]any{"message": "hello class"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readEvent(t, wsB, model.EventChatMessage)
	msg, _ := ev["message"].(map[string]any)
	if msg == nil || msg["content"] != "hello class" {
		t.Errorf("chat event = %v", ev)
	}
}

func TestStreamUpdateRebroadcastsList(t *testing.T) {
	alice := student(1, "alice", "Alice")
	bob := student(2, "bob", "Bob")
	h := newHarness(t, alice, bob)

	wsA := h.dial(t, "token-alice")
	wsB := h.dial(t, "token-bob")
	readEvent(t, wsA, model.EventStreamsUpdate)
	readEvent(t, wsB, model.EventStreamsUpdate)

	if err := wsA.WriteJSON(map[string]any{"action": "update_stream", "is_audio_enabled": true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readEvent(t, wsB, model.EventStreamsUpdate)
	streams, _ := ev["streams"].([]any)
	if len(streams) != 1 {
		t.Fatalf("streams = %v", ev)
	}
	s, _ := streams[0].(map[string]any)
	if s["is_audio_enabled"] != true {
		t.Errorf("stream state = %v", s)
	}
}

func TestUnauthenticatedConnectionIsReadOnly(t *testing.T) {
	alice := student(1, "alice", "Alice")
	h := newHarness(t, alice)

	wsGhost := h.dial(t, "bad-token")
	wsA := h.dial(t, "token-alice")
	readEvent(t, wsGhost, model.EventStreamsUpdate)
	readEvent(t, wsA, model.EventStreamsUpdate)

	// Inbound frames from the unauthenticated socket are ignored.
	if err := wsGhost.WriteJSON(map[string]any{"message": "spoofed"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectNoEvent(t, wsA, model.EventChatMessage)

	// But it still observes broadcasts.
	if err := wsA.WriteJSON(map[string]any{"message": "legit"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readEvent(t, wsGhost, model.EventChatMessage)
}

func TestDisconnectRemovesParticipant(t *testing.T) {
	alice := student(1, "alice", "Alice")
	bob := student(2, "bob", "Bob")
	h := newHarness(t, alice, bob)

	wsA := h.dial(t, "token-alice")
	readEvent(t, wsA, model.EventStreamsUpdate)
	wsB := h.dial(t, "token-bob")
	readEvent(t, wsB, model.EventStreamsUpdate)

	wsB.Close()

	// Presence snapshot without Bob eventually reaches Alice.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ev := readEvent(t, wsA, model.EventParticipantsUpdate)
		participants, _ := ev["participants"].([]any)
		only := len(participants) == 1
		if only {
			p, _ := participants[0].(map[string]any)
			if p["name"] == "Alice" {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale participant entry: %v", ev)
		}
	}
}
