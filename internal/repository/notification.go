package repository

import (
	"context"

	"steeple/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	CreateAdmin(ctx context.Context, n *models.AdminNotification) error
	CreateMember(ctx context.Context, n *models.MemberNotification) error
	GetSetting(ctx context.Context, memberID uint, notifType string) (*models.NotificationSetting, error)
	UpsertSetting(ctx context.Context, setting *models.NotificationSetting) error
	ListSettings(ctx context.Context, memberID uint) ([]models.NotificationSetting, error)
	ListMember(ctx context.Context, memberID uint, limit, offset int) ([]models.MemberNotification, error)
	ListAdmin(ctx context.Context, limit, offset int) ([]models.AdminNotification, error)
	MarkMemberRead(ctx context.Context, memberID, notifID uint) error
	MarkAllMemberRead(ctx context.Context, memberID uint) error
	ClearMember(ctx context.Context, memberID uint) error
	MarkAdminRead(ctx context.Context, notifID uint) error
	CountUnread(ctx context.Context, memberID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateAdmin(ctx context.Context, n *models.AdminNotification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) CreateMember(ctx context.Context, n *models.MemberNotification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetSetting returns the member's setting row for the type, or nil when no
// row exists (absent means enabled).
func (r *notificationRepository) GetSetting(ctx context.Context, memberID uint, notifType string) (*models.NotificationSetting, error) {
	var setting models.NotificationSetting
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND type = ?", memberID, notifType).
		First(&setting).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &setting, nil
}

func (r *notificationRepository) UpsertSetting(ctx context.Context, setting *models.NotificationSetting) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled"}),
		}).
		Create(setting).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) ListSettings(ctx context.Context, memberID uint) ([]models.NotificationSetting, error) {
	var settings []models.NotificationSetting
	if err := r.db.WithContext(ctx).Where("member_id = ?", memberID).Find(&settings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return settings, nil
}

func (r *notificationRepository) ListMember(ctx context.Context, memberID uint, limit, offset int) ([]models.MemberNotification, error) {
	var notifs []models.MemberNotification
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifs, nil
}

func (r *notificationRepository) ListAdmin(ctx context.Context, limit, offset int) ([]models.AdminNotification, error) {
	var notifs []models.AdminNotification
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifs, nil
}

func (r *notificationRepository) MarkMemberRead(ctx context.Context, memberID, notifID uint) error {
	if err := r.db.WithContext(ctx).Model(&models.MemberNotification{}).
		Where("id = ? AND member_id = ?", notifID, memberID).
		Update("read", true).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) MarkAllMemberRead(ctx context.Context, memberID uint) error {
	if err := r.db.WithContext(ctx).Model(&models.MemberNotification{}).
		Where("member_id = ? AND read = ?", memberID, false).
		Update("read", true).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ClearMember bulk-deletes the member's notifications. This is the only
// hard-delete path for notification rows.
func (r *notificationRepository) ClearMember(ctx context.Context, memberID uint) error {
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Delete(&models.MemberNotification{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) MarkAdminRead(ctx context.Context, notifID uint) error {
	if err := r.db.WithContext(ctx).Model(&models.AdminNotification{}).
		Where("id = ?", notifID).
		Update("is_read", true).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MemberNotification{}).
		Where("member_id = ? AND read = ?", memberID, false).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
