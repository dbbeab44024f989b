package service

import (
	"context"

	"github.com/Turbi-kon/online-school-backend/internal/model"
)

// ChannelStore persists channels.
type ChannelStore interface {
	ListChannels(ctx context.Context) ([]model.Channel, error)
	ListChannelsForGroup(ctx context.Context, groupID uint) ([]model.Channel, error)
	GetChannel(ctx context.Context, id uint) (*model.Channel, error)
	CreateChannel(ctx context.Context, ch *model.Channel) error
	UpdateChannel(ctx context.Context, ch *model.Channel) error
	DeleteChannel(ctx context.Context, id uint) error
}

// MessageStore persists chat messages. Listing hydrates sender and file.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, channelID uint) ([]model.Message, error)
}

// FileStore persists uploaded file records.
type FileStore interface {
	CreateFile(ctx context.Context, f *model.UploadedFile) error
}

// UserStore reads the accounts directory.
type UserStore interface {
	FindUserByID(ctx context.Context, id uint) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListActiveStudents(ctx context.Context, groupID *uint) ([]model.User, error)
}

// GroupStore reads study groups.
type GroupStore interface {
	FindGroupsByIDs(ctx context.Context, ids []uint) ([]model.Group, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotificationsForStudent(ctx context.Context, groupID *uint) ([]model.Notification, error)
	ListNotifications(ctx context.Context) ([]model.Notification, error)
}
