package model

import (
	"strings"
	"time"
)

// User roles.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Uploaded file categories.
const (
	FileTypeLecture    = "lecture"
	FileTypeReport     = "report"
	FileTypeUserUpload = "user_upload"
	FileTypeTranscript = "transcript"
)

// Group — study group (GORM).
type Group struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Group) TableName() string { return "groups" }

// User — account directory entry (GORM). Account administration itself
// lives in the accounts service; this service only reads.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"size:150;not null;uniqueIndex"`
	Name      string    `gorm:"size:255;not null"`
	Role      string    `gorm:"size:20;not null;default:student"`
	GroupID   *uint     `gorm:"index"`
	Group     *Group    `gorm:"foreignKey:GroupID"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string { return "users" }

// IsPrivileged reports whether the user may create channels, send
// notifications and mute other participants.
func (u *User) IsPrivileged() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}

// Channel — live session room (GORM).
type Channel struct {
	ID              uint      `gorm:"primaryKey"`
	Name            string    `gorm:"size:100;not null;uniqueIndex"`
	Description     string    `gorm:"type:text"`
	MaxParticipants uint      `gorm:"not null;default:50"`
	AllowedGroups   []Group   `gorm:"many2many:channel_allowed_groups"`
	CreatedByID     *uint     `gorm:"index"`
	CreatedBy       *User     `gorm:"foreignKey:CreatedByID"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (Channel) TableName() string { return "channels" }

// AllowsGroup reports whether a user from the given group may enter.
// An empty allowed-groups set means the channel is unrestricted.
func (c *Channel) AllowsGroup(groupID *uint) bool {
	if len(c.AllowedGroups) == 0 {
		return true
	}
	if groupID == nil {
		return false
	}
	for _, g := range c.AllowedGroups {
		if g.ID == *groupID {
			return true
		}
	}
	return false
}

// UploadedFile — stored object reference (GORM). Immutable.
type UploadedFile struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     *uint     `gorm:"index"`
	FileName   string    `gorm:"size:255;not null"`
	FileType   string    `gorm:"size:20;not null"`
	Path       string    `gorm:"size:512;not null"`
	UploadedAt time.Time `gorm:"autoCreateTime"`
}

func (UploadedFile) TableName() string { return "uploaded_files" }

// IsImage reports whether the file looks like an image, by extension only.
func (f *UploadedFile) IsImage() bool { return IsImageName(f.FileName) }

// IsImageName reports whether a file name has an image extension.
func IsImageName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Message — chat message in a channel (GORM). Immutable, replayed in
// timestamp order.
type Message struct {
	ID             uint          `gorm:"primaryKey"`
	ChannelID      uint          `gorm:"not null;index"`
	SenderID       uint          `gorm:"not null;index"`
	Sender         User          `gorm:"foreignKey:SenderID"`
	Content        string        `gorm:"type:text;not null"`
	Timestamp      time.Time     `gorm:"autoCreateTime;index"`
	UploadedFileID *uint         `gorm:"index"`
	UploadedFile   *UploadedFile `gorm:"foreignKey:UploadedFileID"`
}

func (Message) TableName() string { return "messages" }

// Notification — administrator-authored announcement (GORM). Fan-out is a
// side effect at creation time, not a stored relation.
type Notification struct {
	ID        uint      `gorm:"primaryKey"`
	Title     string    `gorm:"size:255;not null"`
	Message   string    `gorm:"type:text;not null"`
	Image     string    `gorm:"size:2048"`
	GroupID   *uint     `gorm:"index"` // nil = broadcast to all students
	Group     *Group    `gorm:"foreignKey:GroupID"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }

// Stream — per (user, channel) media state (GORM). At most one row per
// pair; upsert semantics.
type Stream struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_streams_user_channel"`
	ChannelID      uint      `gorm:"not null;uniqueIndex:idx_streams_user_channel"`
	IsAudioEnabled bool      `gorm:"not null;default:false"`
	IsVideoEnabled bool      `gorm:"not null;default:false"`
	IsSpeaking     bool      `gorm:"not null;default:false"`
	IsMutedByAdmin bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Stream) TableName() string { return "streams" }
