package models

import (
	"time"
)

const (
	RoleEmployer   = "employer"
	RoleFreelancer = "freelancer"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name         string    `json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"            json:"email"`
	PasswordHash string    `gorm:"not null"                        json:"-"`
	Role         string    `gorm:"not null;default:freelancer"     json:"role"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CVPath       string    `gorm:"column:cv_path"                  json:"cvPath,omitempty"`
	Title        string    `json:"title,omitempty"`
	Skills       string    `json:"skills,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Job struct {
	ID          uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string       `gorm:"not null"                 json:"title"`
	Category    string       `json:"category,omitempty"`
	Type        string       `json:"type,omitempty"`
	Location    string       `json:"location,omitempty"`
	Budget      string       `json:"budget,omitempty"`
	Skills      string       `json:"skills,omitempty"`
	Description string       `gorm:"type:text"                json:"description,omitempty"`
	OwnerID     uint         `gorm:"index"                    json:"ownerId"`
	Attachments []Attachment `gorm:"foreignKey:JobID"         json:"attachments,omitempty"`
	CreatedAt   time.Time    `gorm:"index"                    json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Attachment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename  string    `gorm:"not null"                 json:"filename"`
	Path      string    `gorm:"not null"                 json:"path"`
	JobID     uint      `gorm:"index;not null"           json:"jobId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Room      string    `gorm:"index;not null"           json:"room"`
	Text      string    `gorm:"type:text;not null"       json:"text"`
	SenderID  uint      `gorm:"index"                    json:"senderId"`
	CreatedAt time.Time `gorm:"index"                    json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RevokedToken marks a session token id as no longer accepted. Rows past
// ExpiresAt can be purged since the token would fail verification anyway.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	JTI       string    `gorm:"column:jti;uniqueIndex;not null" json:"jti"`
	UserID    uint      `gorm:"index;not null"       json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null"       json:"expires_at"`
}

func All() []any {
	return []any{&User{}, &Job{}, &Attachment{}, &Message{}, &RevokedToken{}}
}
