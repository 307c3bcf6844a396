package models

import "time"

// Donation records a completed gift. Payment processing itself happens
// upstream; this row is written after the processor confirms the charge.
type Donation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MemberID    *uint     `gorm:"index" json:"member_id,omitempty"`
	DonorEmail  string    `gorm:"index" json:"donor_email"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"size:3;not null;default:USD" json:"currency"`
	Fund        string    `json:"fund,omitempty"`
	Recurring   bool      `gorm:"not null;default:false" json:"recurring"`
	ExternalRef string    `gorm:"uniqueIndex" json:"external_ref"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
