package models

import (
	"time"

	"gorm.io/gorm"
)

// Community is a forum grouping (ministry, small group, interest area).
type Community struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"unique;not null" json:"name"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// ForumThread is a top-level forum post inside a community.
type ForumThread struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CommunityID uint           `gorm:"not null;index" json:"community_id"`
	MemberID    uint           `gorm:"not null;index" json:"member_id"`
	Member      Member         `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Title       string         `gorm:"not null" json:"title"`
	Body        string         `gorm:"type:text;not null" json:"body"`
	// RepliesCount is not persisted; computed at query time
	RepliesCount int            `gorm:"->" json:"replies_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// ForumReply is a reply to a thread.
type ForumReply struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ThreadID  uint           `gorm:"not null;index" json:"thread_id"`
	MemberID  uint           `gorm:"not null;index" json:"member_id"`
	Member    Member         `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
