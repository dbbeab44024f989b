// Package gateway binds WebSocket connections to channel topics: presence,
// WebRTC signaling relay, chat ingress and private notification feeds.
package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Turbi-kon/online-school-backend/internal/auth"
	"github.com/Turbi-kon/online-school-backend/internal/bus"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/Turbi-kon/online-school-backend/internal/registry"
	"github.com/Turbi-kon/online-school-backend/internal/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Gateway accepts channel and notification socket connections. A failed
// token verification does not reject the connection: it proceeds in a
// read-only state where no inbound frame is acted upon.
type Gateway struct {
	bus        bus.Bus
	registry   *registry.Registry
	channels   *service.ChannelService
	chat       *service.ChatService
	users      service.UserStore
	verifier   auth.TokenVerifier
	upgrader   websocket.Upgrader
	maxMsgSize int64
	log        *zap.Logger
}

// Config sizes the WebSocket buffers.
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
}

// New creates the gateway.
func New(b bus.Bus, reg *registry.Registry, channels *service.ChannelService, chat *service.ChatService, users service.UserStore, verifier auth.TokenVerifier, cfg Config, log *zap.Logger) *Gateway {
	return &Gateway{
		bus:        b,
		registry:   reg,
		channels:   channels,
		chat:       chat,
		users:      users,
		verifier:   verifier,
		maxMsgSize: cfg.MaxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		},
		log: log,
	}
}

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (g *Gateway) Upgrader() *websocket.Upgrader {
	return &g.upgrader
}

// conn is one live socket bound to a channel topic. user is nil for an
// unauthenticated (read-only) connection.
type conn struct {
	ws      *websocket.Conn
	user    *model.User
	channel *model.Channel
	writeMu sync.Mutex
}

func (c *conn) send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.sendRaw(payload)
}

func (c *conn) sendRaw(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// ServeChannel runs one channel connection until the socket closes. The
// caller has already upgraded the connection and resolved the channel.
func (g *Gateway) ServeChannel(ctx context.Context, ws *websocket.Conn, channel *model.Channel, token string) {
	if g.maxMsgSize > 0 {
		ws.SetReadLimit(g.maxMsgSize)
	}
	c := &conn{ws: ws, channel: channel}
	if user, err := g.verifier.Verify(ctx, token); err == nil {
		c.user = user
	} else {
		g.log.Info("gateway: unauthenticated connection",
			zap.Uint("channel_id", channel.ID), zap.Error(err))
	}

	topic := bus.ChannelTopic(channel.ID)
	sub, err := g.bus.Subscribe(topic)
	if err != nil {
		g.log.Warn("gateway: subscribe failed", zap.String("topic", topic), zap.Error(err))
		return
	}

	joined := false
	if c.user != nil {
		if err := g.registry.Join(channel, c.user); err != nil {
			// The connection stays open read-only so the client can
			// still observe the channel.
			_ = c.send(model.ErrorEvent{Type: model.EventError, Error: err.Error()})
		} else {
			joined = true
			g.channels.PublishPresence(ctx, channel.ID)
			g.publishJSON(ctx, topic, model.NewParticipantEvent{
				Type:     model.EventNewParticipant,
				Username: c.user.Name,
			})
		}
	}

	// Late joiners get the full stream snapshot up front, no extra
	// round-trip needed.
	_ = c.send(model.StreamsUpdateEvent{
		Type:    model.EventStreamsUpdate,
		Streams: g.registry.ListStreams(channel.ID),
	})

	done := make(chan struct{})
	go g.writePump(c, sub, done)

	g.readLoop(ctx, c)

	sub.Close()
	<-done
	if joined {
		g.registry.Leave(channel.ID, c.user.ID)
		g.channels.PublishPresence(context.Background(), channel.ID)
	}
}

// writePump copies bus deliveries to the socket, applying delivery-time
// filtering. The bus always fans out to the whole topic; each connection
// decides relevance.
func (g *Gateway) writePump(c *conn, sub *bus.Subscription, done chan<- struct{}) {
	defer close(done)
	username := ""
	userID := uint(0)
	if c.user != nil {
		username = c.user.Name
		userID = c.user.ID
	}
	for payload := range sub.C {
		out, ok := filterOutbound(payload, username, func() bool {
			return c.user != nil && g.registry.HasStream(c.channel.ID, userID)
		})
		if !ok {
			continue
		}
		if err := c.sendRaw(out); err != nil {
			_ = c.ws.Close()
			return
		}
	}
}

// readLoop processes inbound frames one at a time, in receipt order.
func (g *Gateway) readLoop(ctx context.Context, c *conn) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.log.Debug("gateway: read error", zap.Error(err))
			}
			return
		}
		if c.user == nil {
			continue // read-only connection
		}
		g.dispatch(ctx, c, data)
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *conn, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		_ = c.send(model.ErrorEvent{Type: model.EventError, Error: "malformed payload"})
		return
	}
	topic := bus.ChannelTopic(c.channel.ID)

	switch {
	case frame.SignalType != "":
		streamType := frame.StreamType
		if streamType == "" {
			streamType = "webcam"
		}
		g.publishJSON(ctx, topic, model.SignalEvent{
			Type:       model.EventSignal,
			SignalType: frame.SignalType,
			SignalData: frame.SignalData,
			From:       c.user.Name,
			To:         frame.To,
			StreamType: streamType,
		})

	case frame.Message != "":
		if _, err := g.chat.PostMessage(ctx, c.channel.ID, c.user, frame.Message, frame.FilePath, frame.FileName); err != nil {
			g.log.Warn("gateway: chat message failed",
				zap.Uint("channel_id", c.channel.ID), zap.Error(err))
			_ = c.send(model.ErrorEvent{Type: model.EventError, Error: "message not delivered"})
		}

	case frame.Action == actionUpdateStream:
		g.registry.UpsertStream(ctx, c.channel.ID, c.user, frame.StreamUpdate)
		g.publishStreams(ctx, c.channel.ID)

	case frame.Action == actionAdminMute:
		if !c.user.IsPrivileged() {
			return
		}
		target, err := g.users.FindUserByUsername(ctx, frame.TargetUser)
		if err != nil {
			return
		}
		muted := true
		if frame.Muted != nil {
			muted = *frame.Muted
		}
		g.registry.SetAdminMute(ctx, c.channel.ID, target, muted)
		g.publishStreams(ctx, c.channel.ID)
	}
}

// publishStreams re-broadcasts the full stream list. Every state change
// re-broadcasts, even a no-op update.
func (g *Gateway) publishStreams(ctx context.Context, channelID uint) {
	g.publishJSON(ctx, bus.ChannelTopic(channelID), model.StreamsUpdateEvent{
		Type:    model.EventStreamsUpdate,
		Streams: g.registry.ListStreams(channelID),
	})
}

func (g *Gateway) publishJSON(ctx context.Context, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := g.bus.Publish(ctx, topic, payload); err != nil {
		g.log.Warn("gateway: publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// ServeNotifications runs one private notification feed. Unauthenticated
// connections are closed immediately.
func (g *Gateway) ServeNotifications(ctx context.Context, ws *websocket.Conn, token string) {
	user, err := g.verifier.Verify(ctx, token)
	if err != nil {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"))
		return
	}
	sub, err := g.bus.Subscribe(bus.UserTopic(user.ID))
	if err != nil {
		g.log.Warn("gateway: subscribe failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return
	}
	c := &conn{ws: ws, user: user}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range sub.C {
			if err := c.sendRaw(payload); err != nil {
				_ = ws.Close()
				return
			}
		}
	}()

	// Inbound frames on the notification socket are ignored.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	sub.Close()
	<-done
}
