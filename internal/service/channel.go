package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Turbi-kon/online-school-backend/internal/bus"
	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"github.com/Turbi-kon/online-school-backend/internal/registry"
	"go.uber.org/zap"
)

// ChannelService manages channel settings and membership. Live presence
// lives in the registry; this service is the REST-facing surface around it.
type ChannelService struct {
	channels ChannelStore
	groups   GroupStore
	registry *registry.Registry
	bus      bus.Bus
	log      *zap.Logger
}

// NewChannelService creates the channel service.
func NewChannelService(channels ChannelStore, groups GroupStore, reg *registry.Registry, b bus.Bus, log *zap.Logger) *ChannelService {
	return &ChannelService{channels: channels, groups: groups, registry: reg, bus: b, log: log}
}

// ListForUser returns channels visible to the user. Students only see
// channels whose allowed groups include theirs; privileged roles see all.
func (s *ChannelService) ListForUser(ctx context.Context, user *model.User) ([]model.ChannelView, error) {
	var (
		channels []model.Channel
		err      error
	)
	if user.IsPrivileged() {
		channels, err = s.channels.ListChannels(ctx)
	} else if user.GroupID != nil {
		channels, err = s.channels.ListChannelsForGroup(ctx, *user.GroupID)
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.ChannelView, 0, len(channels))
	for i := range channels {
		out = append(out, s.view(&channels[i]))
	}
	return out, nil
}

// Get returns one channel with its current participants.
func (s *ChannelService) Get(ctx context.Context, id uint) (*model.ChannelView, error) {
	ch, err := s.channels.GetChannel(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.view(ch)
	return &view, nil
}

// GetEntity returns the raw channel entity (allowed groups preloaded).
func (s *ChannelService) GetEntity(ctx context.Context, id uint) (*model.Channel, error) {
	return s.channels.GetChannel(ctx, id)
}

// Create creates a channel. Teachers and admins only.
func (s *ChannelService) Create(ctx context.Context, creator *model.User, req model.CreateChannelRequest) (*model.ChannelView, error) {
	if !creator.IsPrivileged() {
		return nil, errs.ErrForbidden
	}
	groups, err := s.groups.FindGroupsByIDs(ctx, req.AllowedGroupIDs)
	if err != nil {
		return nil, err
	}
	creatorID := creator.ID
	ch := &model.Channel{
		Name:            req.Name,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		AllowedGroups:   groups,
		CreatedByID:     &creatorID,
		CreatedBy:       creator,
	}
	if ch.MaxParticipants == 0 {
		ch.MaxParticipants = 50
	}
	if err := s.channels.CreateChannel(ctx, ch); err != nil {
		return nil, fmt.Errorf("channel: create: %w", err)
	}
	view := s.view(ch)
	return &view, nil
}

// Update applies a partial settings update. Teachers and admins only.
func (s *ChannelService) Update(ctx context.Context, user *model.User, id uint, req model.UpdateChannelRequest) (*model.ChannelView, error) {
	if !user.IsPrivileged() {
		return nil, errs.ErrForbidden
	}
	ch, err := s.channels.GetChannel(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		ch.Name = *req.Name
	}
	if req.Description != nil {
		ch.Description = *req.Description
	}
	if req.MaxParticipants != nil {
		ch.MaxParticipants = *req.MaxParticipants
	}
	if req.AllowedGroupIDs != nil {
		groups, err := s.groups.FindGroupsByIDs(ctx, req.AllowedGroupIDs)
		if err != nil {
			return nil, err
		}
		ch.AllowedGroups = groups
	}
	if err := s.channels.UpdateChannel(ctx, ch); err != nil {
		return nil, fmt.Errorf("channel: update: %w", err)
	}
	view := s.view(ch)
	return &view, nil
}

// Delete removes a channel. Teachers and admins only.
func (s *ChannelService) Delete(ctx context.Context, user *model.User, id uint) error {
	if !user.IsPrivileged() {
		return errs.ErrForbidden
	}
	return s.channels.DeleteChannel(ctx, id)
}

// Join records the user as a participant, enforcing the same group and
// capacity predicate the socket gateway uses, then republishes presence.
func (s *ChannelService) Join(ctx context.Context, channelID uint, user *model.User) error {
	ch, err := s.channels.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.registry.Join(ch, user); err != nil {
		return err
	}
	s.PublishPresence(ctx, channelID)
	return nil
}

// Leave removes the user from the channel and republishes presence.
// Leaving a channel the user was never in is a no-op.
func (s *ChannelService) Leave(ctx context.Context, channelID uint, user *model.User) error {
	if _, err := s.channels.GetChannel(ctx, channelID); err != nil {
		return err
	}
	s.registry.Leave(channelID, user.ID)
	s.PublishPresence(ctx, channelID)
	return nil
}

// Participants returns current participants ordered by name.
func (s *ChannelService) Participants(channelID uint) []model.UserInfo {
	return s.registry.ListParticipants(channelID)
}

// Streams returns the channel's live stream states.
func (s *ChannelService) Streams(channelID uint) []model.StreamView {
	return s.registry.ListStreams(channelID)
}

// PublishPresence broadcasts the current participant snapshot to the
// channel topic.
func (s *ChannelService) PublishPresence(ctx context.Context, channelID uint) {
	payload, err := json.Marshal(model.ParticipantsUpdateEvent{
		Type:         model.EventParticipantsUpdate,
		Participants: s.registry.ListParticipants(channelID),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, bus.ChannelTopic(channelID), payload); err != nil {
		s.log.Warn("channel: presence publish failed",
			zap.Uint("channel_id", channelID), zap.Error(err))
	}
}

func (s *ChannelService) view(ch *model.Channel) model.ChannelView {
	view := model.ChannelView{
		ID:              ch.ID,
		Name:            ch.Name,
		Description:     ch.Description,
		MaxParticipants: ch.MaxParticipants,
		AllowedGroups:   ch.AllowedGroups,
		CreatedAt:       ch.CreatedAt,
		UpdatedAt:       ch.UpdatedAt,
		Participants:    s.registry.ListParticipants(ch.ID),
	}
	if view.AllowedGroups == nil {
		view.AllowedGroups = []model.Group{}
	}
	if ch.CreatedBy != nil {
		info := ch.CreatedBy.Info()
		view.CreatedBy = &info
	}
	return view
}
