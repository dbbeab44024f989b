package model

import "encoding/json"

// Outbound socket event types.
const (
	EventStreamsUpdate      = "streams_update"
	EventNewParticipant     = "new_participant"
	EventParticipantsUpdate = "participants_update"
	EventChatMessage        = "chat_message"
	EventSignal             = "signal"
	EventNotification       = "notification"
	EventError              = "error"
)

// StreamsUpdateEvent carries the full stream list of a channel. Every
// state change re-broadcasts the whole list.
type StreamsUpdateEvent struct {
	Type    string       `json:"type"`
	Streams []StreamView `json:"streams"`
}

// NewParticipantEvent announces a joiner to current streamers.
type NewParticipantEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// ParticipantsUpdateEvent carries the presence snapshot of a channel.
type ParticipantsUpdateEvent struct {
	Type         string     `json:"type"`
	Participants []UserInfo `json:"participants"`
}

// ChatMessageEvent carries one hydrated chat message.
type ChatMessageEvent struct {
	Type    string      `json:"type"`
	Message MessageView `json:"message"`
}

// SignalEvent is a relayed WebRTC negotiation payload. The payload is
// opaque to the server. To is only used for delivery-time filtering and
// is stripped from the frame each recipient receives.
type SignalEvent struct {
	Type       string          `json:"type"`
	SignalType string          `json:"signal_type"`
	SignalData json.RawMessage `json:"signal_data"`
	From       string          `json:"from"`
	To         string          `json:"to,omitempty"`
	StreamType string          `json:"stream_type"`
}

// NotificationEvent is delivered on a user's private topic.
type NotificationEvent struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Image   string `json:"image"`
}

// ErrorEvent reports a non-fatal failure back to one connection.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
