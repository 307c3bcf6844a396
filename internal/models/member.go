// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Member roles.
const (
	RoleMember = "member"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// Member represents a registered member of the organization.
type Member struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Email    string `gorm:"unique;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     string `gorm:"not null;default:member" json:"role"`

	// Moderation state. Bans are flag-only; member rows are never hard-deleted.
	Banned       bool       `gorm:"not null;default:false" json:"banned"`
	BannedReason string     `json:"banned_reason,omitempty"`
	BannedAt     *time.Time `json:"banned_at,omitempty"`
	// BannedBy is nil for system-initiated bans (autoban).
	BannedBy *uint `json:"banned_by,omitempty"`

	// Spam scoring state. The score only grows until a ban or a manual
	// admin reset; there is no decay.
	AutobanScore    int   `gorm:"not null;default:0" json:"autoban_score"`
	AutobanLastPost int64 `gorm:"not null;default:0" json:"autoban_last_post"`

	// Karma counters, clamped at zero in SQL on every update.
	PostKarma  int `gorm:"not null;default:0" json:"post_karma"`
	ReplyKarma int `gorm:"not null;default:0" json:"reply_karma"`
	TotalKarma int `gorm:"not null;default:0" json:"total_karma"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Badges []MemberBadge `gorm:"foreignKey:MemberID" json:"badges,omitempty"`
}

// IsAdmin reports whether the member holds the admin role.
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// KarmaDelta is a signed adjustment applied to a set of karma counters.
type KarmaDelta struct {
	Post  int `json:"post"`
	Reply int `json:"reply"`
	Total int `json:"total"`
}

// IsZero reports whether the delta would change nothing.
func (d KarmaDelta) IsZero() bool {
	return d.Post == 0 && d.Reply == 0 && d.Total == 0
}
