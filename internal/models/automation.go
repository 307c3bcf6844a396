package models

import "time"

// Automation trigger types. A trigger is a symbolic event name used to look
// up which sequences apply.
const (
	TriggerMemberSignup  = "member_signup"
	TriggerEmailSignup   = "email_signup"
	TriggerDonation      = "donation"
	TriggerFirstDonation = "first_donation"
	TriggerEventRSVP     = "event_rsvp"
)

// Automation queue entry statuses.
const (
	QueueStatusPending = "pending"
	QueueStatusSent    = "sent"
	QueueStatusFailed  = "failed"
)

// AutomationSequence is a named drip-email campaign bound to a trigger type.
type AutomationSequence struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"not null" json:"name"`
	TriggerType string           `gorm:"size:50;index;not null" json:"trigger_type"`
	IsActive    bool             `gorm:"not null;default:true" json:"is_active"`
	Steps       []AutomationStep `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName keeps the historical table name.
func (AutomationSequence) TableName() string {
	return "email_automation_sequences"
}

// AutomationStep is one delay-offset email in a sequence.
type AutomationStep struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	SequenceID uint   `gorm:"not null;index" json:"sequence_id"`
	StepOrder  int    `gorm:"not null" json:"step_order"`
	DelayDays  int    `gorm:"not null;default:0" json:"delay_days"`
	Subject    string `gorm:"not null" json:"subject"`
	Template   string `gorm:"type:text" json:"template"`
}

// TableName keeps the historical table name.
func (AutomationStep) TableName() string {
	return "email_automation_steps"
}

// AutomationQueueEntry is a scheduled send. Entries are write-only at
// enqueue time; the dispatch job flips the status once the entry is due.
// Re-firing a trigger for the same target enqueues duplicate rows; there is
// no dedup key, callers own that responsibility.
type AutomationQueueEntry struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	SequenceID    uint       `gorm:"not null;index" json:"sequence_id"`
	StepID        uint       `gorm:"not null" json:"step_id"`
	MemberID      *uint      `gorm:"index" json:"member_id,omitempty"`
	EmailSignupID *uint      `json:"email_signup_id,omitempty"`
	DonorID       *uint      `json:"donor_id,omitempty"`
	EventID       *uint      `json:"event_id,omitempty"`
	RunAt         time.Time  `gorm:"not null;index" json:"run_at"`
	Status        string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName keeps the historical table name.
func (AutomationQueueEntry) TableName() string {
	return "email_automation_queue"
}
