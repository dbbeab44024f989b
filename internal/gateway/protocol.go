package gateway

import (
	"encoding/json"

	"github.com/Turbi-kon/online-school-backend/internal/model"
)

// Inbound frame actions.
const (
	actionUpdateStream = "update_stream"
	actionAdminMute    = "admin_mute"
)

// inboundFrame is the union of everything a client may send on a channel
// socket. Which operation it is follows from which fields are set:
// signal_type wins, then message, then action.
type inboundFrame struct {
	SignalType string          `json:"signal_type"`
	SignalData json.RawMessage `json:"signal_data"`
	To         string          `json:"to"`
	StreamType string          `json:"stream_type"`

	Message  string `json:"message"`
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`

	Action     string `json:"action"`
	TargetUser string `json:"target_user"`
	Muted      *bool  `json:"muted"`

	model.StreamUpdate
}

// outboundPeek is the minimal decode needed to filter a bus delivery.
type outboundPeek struct {
	Type     string `json:"type"`
	To       string `json:"to"`
	Username string `json:"username"`
}

// filterOutbound decides whether a bus payload reaches this connection and
// rewrites it when needed. Targeted signals are dropped by everyone but the
// named recipient, and the routing field is stripped from the delivered
// frame. new_participant only goes to current streamers, never the joiner.
func filterOutbound(payload []byte, username string, hasStream func() bool) ([]byte, bool) {
	var peek outboundPeek
	if err := json.Unmarshal(payload, &peek); err != nil {
		return nil, false
	}
	switch peek.Type {
	case model.EventSignal:
		if peek.To == "" {
			return payload, true
		}
		if peek.To != username {
			return nil, false
		}
		var ev model.SignalEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, false
		}
		ev.To = ""
		out, err := json.Marshal(ev)
		if err != nil {
			return nil, false
		}
		return out, true

	case model.EventNewParticipant:
		if peek.Username == username {
			return nil, false
		}
		if !hasStream() {
			return nil, false
		}
		return payload, true

	default:
		return payload, true
	}
}
