package model

import "time"

// UserInfo is the public view of a user.
type UserInfo struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Info returns the public view of the user.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Username: u.Username}
}

// StreamView is the fan-out view of a participant's media state.
type StreamView struct {
	User           UserInfo `json:"user"`
	IsAudioEnabled bool     `json:"is_audio_enabled"`
	IsVideoEnabled bool     `json:"is_video_enabled"`
	IsSpeaking     bool     `json:"is_speaking"`
	IsMutedByAdmin bool     `json:"is_muted_by_admin"`
}

// FileView is the hydrated view of an uploaded file. URL is a presigned
// download link and may be null when generation fails.
type FileView struct {
	ID         uint      `json:"id"`
	FileName   string    `json:"file_name"`
	Path       string    `json:"path"`
	FileType   string    `json:"file_type"`
	UploadedAt time.Time `json:"uploaded_at"`
	URL        *string   `json:"url"`
	IsImage    bool      `json:"is_image"`
}

// MessageView is the hydrated view of a chat message.
type MessageView struct {
	Sender       UserInfo  `json:"sender"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	UploadedFile *FileView `json:"uploaded_file"`
}

// ChannelView is the API view of a channel.
type ChannelView struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	MaxParticipants uint       `json:"max_participants"`
	AllowedGroups   []Group    `json:"groups_allowed"`
	CreatedBy       *UserInfo  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Participants    []UserInfo `json:"participants"`
}

// NotificationView is the API view of a notification.
type NotificationView struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Image     string    `json:"image"`
	GroupID   *uint     `json:"group"`
	CreatedAt time.Time `json:"created_at"`
}

// StreamUpdate is a partial update of the caller's own stream state.
// Nil fields keep their current value.
type StreamUpdate struct {
	IsAudioEnabled *bool `json:"is_audio_enabled"`
	IsVideoEnabled *bool `json:"is_video_enabled"`
	IsSpeaking     *bool `json:"is_speaking"`
}

// CreateChannelRequest is the request body for creating a channel.
type CreateChannelRequest struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	MaxParticipants uint   `json:"max_participants"`
	AllowedGroupIDs []uint `json:"groups_allowed"`
}

// UpdateChannelRequest is a partial update of channel settings.
type UpdateChannelRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	MaxParticipants *uint   `json:"max_participants"`
	AllowedGroupIDs []uint  `json:"groups_allowed"`
}

// CreateNotificationRequest is the request body for creating a notification.
type CreateNotificationRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
	Image   string `json:"image"`
	GroupID *uint  `json:"group"`
}
