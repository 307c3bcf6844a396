package models

import (
	"time"

	"gorm.io/gorm"
)

// Well-known badge keys used by the auto-badge thresholds.
const (
	BadgeKeyFirstThread  = "first_thread"
	BadgeKeyActiveMember = "active_member"
)

// Badge is an admin-defined award type. Badges are soft-activatable and may
// carry an expiry; the expiry sweep flips IsActive rather than deleting so
// already-granted badges keep their history.
type Badge struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	BadgeKey  string         `gorm:"uniqueIndex;not null" json:"badge_key"`
	IconURL   string         `json:"icon_url"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MemberBadge is the grant join row. The composite unique index makes the
// at-most-one-grant guarantee a storage-layer property; inserts go through
// an ON CONFLICT DO NOTHING upsert so concurrent grants cannot race.
type MemberBadge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"not null;uniqueIndex:idx_member_badge" json:"member_id"`
	BadgeID   uint      `gorm:"not null;uniqueIndex:idx_member_badge" json:"badge_id"`
	Badge     Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	GrantedAt time.Time `gorm:"not null" json:"granted_at"`
}
