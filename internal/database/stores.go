package database

import (
	"context"
	"errors"

	"github.com/Turbi-kon/online-school-backend/internal/errs"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements the persistence interfaces of the service layer on GORM.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListChannels returns all channels with allowed groups and creator.
func (s *Store) ListChannels(ctx context.Context) ([]model.Channel, error) {
	var out []model.Channel
	err := s.db.WithContext(ctx).
		Preload("AllowedGroups").
		Preload("CreatedBy").
		Order("name").
		Find(&out).Error
	return out, err
}

// ListChannelsForGroup returns channels whose allowed groups include the
// given group.
func (s *Store) ListChannelsForGroup(ctx context.Context, groupID uint) ([]model.Channel, error) {
	var out []model.Channel
	err := s.db.WithContext(ctx).
		Preload("AllowedGroups").
		Preload("CreatedBy").
		Joins("JOIN channel_allowed_groups cag ON cag.channel_id = channels.id").
		Where("cag.group_id = ?", groupID).
		Order("channels.name").
		Find(&out).Error
	return out, err
}

// GetChannel returns one channel with allowed groups preloaded.
func (s *Store) GetChannel(ctx context.Context, id uint) (*model.Channel, error) {
	var ch model.Channel
	err := s.db.WithContext(ctx).
		Preload("AllowedGroups").
		Preload("CreatedBy").
		First(&ch, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateChannel persists a channel and its allowed-groups relation.
func (s *Store) CreateChannel(ctx context.Context, ch *model.Channel) error {
	return s.db.WithContext(ctx).Create(ch).Error
}

// UpdateChannel saves channel fields and replaces the allowed-groups set.
func (s *Store) UpdateChannel(ctx context.Context, ch *model.Channel) error {
	tx := s.db.WithContext(ctx)
	if err := tx.Omit("AllowedGroups").Save(ch).Error; err != nil {
		return err
	}
	return tx.Model(ch).Association("AllowedGroups").Replace(ch.AllowedGroups)
}

// DeleteChannel removes a channel. Messages and streams cascade via FK.
func (s *Store) DeleteChannel(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Channel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrChannelNotFound
	}
	return nil
}

// CreateMessage persists a chat message.
func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

// ListMessages returns a channel's messages ordered by timestamp
// ascending, with sender and file hydrated.
func (s *Store) ListMessages(ctx context.Context, channelID uint) ([]model.Message, error) {
	var out []model.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("UploadedFile").
		Where("channel_id = ?", channelID).
		Order("timestamp").
		Find(&out).Error
	return out, err
}

// CreateFile persists an uploaded-file record.
func (s *Store) CreateFile(ctx context.Context, f *model.UploadedFile) error {
	return s.db.WithContext(ctx).Create(f).Error
}

// FindUserByID returns a directory entry by id.
func (s *Store) FindUserByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Preload("Group").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByUsername returns a directory entry by username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Preload("Group").
		Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActiveStudents returns active students, optionally filtered by group.
func (s *Store) ListActiveStudents(ctx context.Context, groupID *uint) ([]model.User, error) {
	q := s.db.WithContext(ctx).
		Where("role = ? AND is_active", model.RoleStudent)
	if groupID != nil {
		q = q.Where("group_id = ?", *groupID)
	}
	var out []model.User
	err := q.Find(&out).Error
	return out, err
}

// FindGroupsByIDs returns the groups with the given ids.
func (s *Store) FindGroupsByIDs(ctx context.Context, ids []uint) ([]model.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []model.Group
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// CreateNotification persists a notification.
func (s *Store) CreateNotification(ctx context.Context, n *model.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

// ListNotificationsForStudent returns broadcasts plus the student's own
// group, newest first.
func (s *Store) ListNotificationsForStudent(ctx context.Context, groupID *uint) ([]model.Notification, error) {
	q := s.db.WithContext(ctx)
	if groupID != nil {
		q = q.Where("group_id IS NULL OR group_id = ?", *groupID)
	} else {
		q = q.Where("group_id IS NULL")
	}
	var out []model.Notification
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

// ListNotifications returns every notification, newest first.
func (s *Store) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

// UpsertStream inserts or updates the single stream row per (user,
// channel) pair in one statement, not check-then-insert.
func (s *Store) UpsertStream(ctx context.Context, stream *model.Stream) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_audio_enabled", "is_video_enabled", "is_speaking", "is_muted_by_admin", "updated_at",
		}),
	}).Create(stream).Error
}
