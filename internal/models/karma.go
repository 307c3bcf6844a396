package models

import "time"

// CommunityKarma is a per (community, member) accumulator. The first bump
// for a pair creates the row through an upsert, so an absent row behaves
// like zeroes.
type CommunityKarma struct {
	CommunityID uint      `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	MemberID    uint      `gorm:"primaryKey;autoIncrement:false" json:"member_id"`
	PostKarma   int       `gorm:"not null;default:0" json:"post_karma"`
	ReplyKarma  int       `gorm:"not null;default:0" json:"reply_karma"`
	TotalKarma  int       `gorm:"not null;default:0" json:"total_karma"`
	LastUpdated time.Time `json:"last_updated"`
}

// TableName keeps the historical table name.
func (CommunityKarma) TableName() string {
	return "forum_community_karma"
}
