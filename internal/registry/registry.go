// Package registry owns the live per-channel state: who is present and
// what their media streams look like. It is mutated concurrently by every
// connection bound to a channel. Mutations hold the registry lock so that
// channel entries can be created and reclaimed safely; reads only touch
// the per-channel lock and never allocate.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"go.uber.org/zap"
)

// StreamStore persists stream rows behind the in-memory table. Writes are
// best-effort: the live table is what fan-out reads.
type StreamStore interface {
	UpsertStream(ctx context.Context, stream *model.Stream) error
}

// Registry is the channel session registry.
type Registry struct {
	mu       sync.Mutex
	channels map[uint]*channelState
	streams  StreamStore // optional write-through
	log      *zap.Logger
}

type channelState struct {
	mu           sync.Mutex
	participants map[uint]model.UserInfo
	streams      map[uint]*streamState
}

type streamState struct {
	user       model.UserInfo
	audio      bool
	video      bool
	speaking   bool
	adminMuted bool
}

// New creates a registry. store may be nil to disable write-through.
func New(store StreamStore, log *zap.Logger) *Registry {
	return &Registry{
		channels: make(map[uint]*channelState),
		streams:  store,
		log:      log,
	}
}

// ensure returns the per-channel state, creating it on first use. The
// caller must hold r.mu for the whole mutation so that the entry cannot be
// reclaimed by a concurrent Leave between lookup and write.
func (r *Registry) ensure(channelID uint) *channelState {
	st, ok := r.channels[channelID]
	if !ok {
		st = &channelState{
			participants: make(map[uint]model.UserInfo),
			streams:      make(map[uint]*streamState),
		}
		r.channels[channelID] = st
	}
	return st
}

// peek returns the per-channel state without creating it. Read paths use
// this so that queries against arbitrary channel ids never allocate.
func (r *Registry) peek(channelID uint) (*channelState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.channels[channelID]
	return st, ok
}

// Join checks the channel's group restriction and capacity and records the
// participant, all under the channel lock. The check and the insert are one
// atomic step: concurrent joins cannot overshoot max_participants. Joining
// a channel the user is already in is a no-op.
func (r *Registry) Join(ch *model.Channel, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.ensure(ch.ID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.participants[user.ID]; ok {
		return nil
	}
	if !ch.AllowsGroup(user.GroupID) {
		return errs.ErrGroupNotAllowed
	}
	if ch.MaxParticipants > 0 && uint(len(st.participants)) >= ch.MaxParticipants {
		return errs.ErrChannelFull
	}
	st.participants[user.ID] = user.Info()
	return nil
}

// Leave removes the participant. Removing an absent participant is a no-op,
// so an abrupt or repeated disconnect never fails and never leaves a ghost.
// The channel entry itself is reclaimed once nothing is left in it.
func (r *Registry) Leave(channelID, userID uint) {
	r.mu.Lock()
	st, ok := r.channels[channelID]
	if !ok {
		r.mu.Unlock()
		return
	}
	st.mu.Lock()
	delete(st.participants, userID)
	empty := len(st.participants) == 0 && len(st.streams) == 0
	st.mu.Unlock()
	if empty {
		delete(r.channels, channelID)
	}
	r.mu.Unlock()
}

// IsParticipant reports whether the user is currently in the channel.
func (r *Registry) IsParticipant(channelID, userID uint) bool {
	st, ok := r.peek(channelID)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok = st.participants[userID]
	return ok
}

// ListParticipants returns current participants ordered by display name.
func (r *Registry) ListParticipants(channelID uint) []model.UserInfo {
	st, ok := r.peek(channelID)
	if !ok {
		return []model.UserInfo{}
	}
	st.mu.Lock()
	out := make([]model.UserInfo, 0, len(st.participants))
	for _, p := range st.participants {
		out = append(out, p)
	}
	st.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpsertStream applies a partial state update to the user's stream in the
// channel, creating the stream on first touch. Nil fields keep their value;
// the admin mute flag is never touched here.
func (r *Registry) UpsertStream(ctx context.Context, channelID uint, user *model.User, upd model.StreamUpdate) {
	r.mu.Lock()
	st := r.ensure(channelID)
	st.mu.Lock()
	s, ok := st.streams[user.ID]
	if !ok {
		s = &streamState{user: user.Info()}
		st.streams[user.ID] = s
	}
	if upd.IsAudioEnabled != nil {
		s.audio = *upd.IsAudioEnabled
	}
	if upd.IsVideoEnabled != nil {
		s.video = *upd.IsVideoEnabled
	}
	if upd.IsSpeaking != nil {
		s.speaking = *upd.IsSpeaking
	}
	row := s.row(channelID)
	st.mu.Unlock()
	r.mu.Unlock()

	r.writeThrough(ctx, row)
}

// SetAdminMute flips the admin mute flag on the target's stream, creating
// the stream if the target has not published state yet. Role checks are the
// caller's job.
func (r *Registry) SetAdminMute(ctx context.Context, channelID uint, target *model.User, muted bool) {
	r.mu.Lock()
	st := r.ensure(channelID)
	st.mu.Lock()
	s, ok := st.streams[target.ID]
	if !ok {
		s = &streamState{user: target.Info()}
		st.streams[target.ID] = s
	}
	s.adminMuted = muted
	row := s.row(channelID)
	st.mu.Unlock()
	r.mu.Unlock()

	r.writeThrough(ctx, row)
}

// HasStream reports whether the user has a stream record in the channel.
func (r *Registry) HasStream(channelID, userID uint) bool {
	st, ok := r.peek(channelID)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok = st.streams[userID]
	return ok
}

// ListStreams returns the channel's stream states ordered by user name.
// A channel with no streams yields an empty slice, not an error.
func (r *Registry) ListStreams(channelID uint) []model.StreamView {
	st, ok := r.peek(channelID)
	if !ok {
		return []model.StreamView{}
	}
	st.mu.Lock()
	out := make([]model.StreamView, 0, len(st.streams))
	for _, s := range st.streams {
		out = append(out, model.StreamView{
			User:           s.user,
			IsAudioEnabled: s.audio,
			IsVideoEnabled: s.video,
			IsSpeaking:     s.speaking,
			IsMutedByAdmin: s.adminMuted,
		})
	}
	st.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].User.Name < out[j].User.Name })
	return out
}

func (s *streamState) row(channelID uint) *model.Stream {
	return &model.Stream{
		UserID:         s.user.ID,
		ChannelID:      channelID,
		IsAudioEnabled: s.audio,
		IsVideoEnabled: s.video,
		IsSpeaking:     s.speaking,
		IsMutedByAdmin: s.adminMuted,
	}
}

func (r *Registry) writeThrough(ctx context.Context, row *model.Stream) {
	if r.streams == nil {
		return
	}
	if err := r.streams.UpsertStream(ctx, row); err != nil {
		r.log.Warn("registry: stream write-through failed",
			zap.Uint("channel_id", row.ChannelID),
			zap.Uint("user_id", row.UserID),
			zap.Error(err))
	}
}
