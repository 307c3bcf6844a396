package models

import (
	"time"

	"gorm.io/gorm"
)

// RSVP statuses.
const (
	RSVPStatusGoing    = "going"
	RSVPStatusMaybe    = "maybe"
	RSVPStatusDeclined = "declined"
)

// Event is a calendar event members can RSVP to.
type Event struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Location    string         `json:"location"`
	StartsAt    time.Time      `gorm:"not null;index" json:"starts_at"`
	EndsAt      *time.Time     `json:"ends_at,omitempty"`
	Capacity    int            `json:"capacity"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// EventRSVP records a member's response to an event. One row per
// (event, member); re-RSVPing updates the status in place.
type EventRSVP struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;uniqueIndex:idx_event_member" json:"event_id"`
	MemberID  uint      `gorm:"not null;uniqueIndex:idx_event_member" json:"member_id"`
	Status    string    `gorm:"size:20;not null;default:going" json:"status"`
	Guests    int       `gorm:"not null;default:0" json:"guests"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
