package models

import "time"

// Notification categories for member-facing notifications.
const (
	NotifCategoryForum    = "forum"
	NotifCategoryEvent    = "event"
	NotifCategoryDonation = "donation"
	NotifCategoryAccount  = "account"
)

// AdminNotification is a dashboard notification visible to admin sessions.
// There are no per-admin preferences; every admin channel subscriber sees it.
type AdminNotification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"size:50;index;not null" json:"type"`
	Message   string    `gorm:"not null" json:"message"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	IsRead    bool      `gorm:"not null;default:false;index" json:"is_read"`
	AdminID   *uint     `json:"admin_id,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the historical table name.
func (AdminNotification) TableName() string {
	return "admin_notifications"
}

// MemberNotification is a notification addressed to a single member.
type MemberNotification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"not null;index" json:"member_id"`
	Category  string    `gorm:"size:30;index" json:"category"`
	Type      string    `gorm:"size:50;index;not null" json:"type"`
	Message   string    `gorm:"not null" json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the historical table name.
func (MemberNotification) TableName() string {
	return "forum_notifications"
}

// NotificationSetting is a per-member, per-type toggle. An absent row means
// the type is enabled; only an explicitly disabled row suppresses delivery.
type NotificationSetting struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	MemberID uint   `gorm:"not null;uniqueIndex:idx_member_notif_type" json:"member_id"`
	Type     string `gorm:"size:50;not null;uniqueIndex:idx_member_notif_type" json:"type"`
	Enabled  bool   `gorm:"not null;default:true" json:"enabled"`
}
