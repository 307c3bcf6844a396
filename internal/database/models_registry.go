package database

import "steeple/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Member{},
		&models.Badge{},
		&models.MemberBadge{},
		&models.Community{},
		&models.CommunityKarma{},
		&models.ForumThread{},
		&models.ForumReply{},
		&models.Event{},
		&models.EventRSVP{},
		&models.Donation{},
		&models.AdminNotification{},
		&models.MemberNotification{},
		&models.NotificationSetting{},
		&models.AutomationSequence{},
		&models.AutomationStep{},
		&models.AutomationQueueEntry{},
	}
}
