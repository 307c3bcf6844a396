package repository

import (
	"context"
	"time"

	"steeple/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BadgeRepository defines the interface for badge data operations
type BadgeRepository interface {
	GetActiveByKey(ctx context.Context, badgeKey string) (*models.Badge, error)
	GetByID(ctx context.Context, id uint) (*models.Badge, error)
	Create(ctx context.Context, badge *models.Badge) error
	Update(ctx context.Context, badge *models.Badge) error
	List(ctx context.Context) ([]models.Badge, error)
	Grant(ctx context.Context, memberID, badgeID uint) (bool, error)
	ListForMember(ctx context.Context, memberID uint) ([]models.MemberBadge, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type badgeRepository struct {
	db *gorm.DB
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

// GetActiveByKey returns the active, non-expired badge for the key, or nil
// when no such badge exists. A miss is not an error.
func (r *badgeRepository) GetActiveByKey(ctx context.Context, badgeKey string) (*models.Badge, error) {
	var badge models.Badge
	err := r.db.WithContext(ctx).
		Where("badge_key = ? AND is_active = ?", badgeKey, true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		First(&badge).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &badge, nil
}

func (r *badgeRepository) GetByID(ctx context.Context, id uint) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).First(&badge, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("Badge", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &badge, nil
}

func (r *badgeRepository) Create(ctx context.Context, badge *models.Badge) error {
	if err := r.db.WithContext(ctx).Create(badge).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *badgeRepository) Update(ctx context.Context, badge *models.Badge) error {
	if err := r.db.WithContext(ctx).Save(badge).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *badgeRepository) List(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&badges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return badges, nil
}

// Grant inserts the (member, badge) join row. The unique index plus
// ON CONFLICT DO NOTHING make the insert race-free; the returned bool is
// true only when this call created the row.
func (r *badgeRepository) Grant(ctx context.Context, memberID, badgeID uint) (bool, error) {
	grant := models.MemberBadge{
		MemberID:  memberID,
		BadgeID:   badgeID,
		GrantedAt: time.Now(),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(&grant)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *badgeRepository) ListForMember(ctx context.Context, memberID uint) ([]models.MemberBadge, error) {
	var grants []models.MemberBadge
	if err := r.db.WithContext(ctx).
		Preload("Badge").
		Where("member_id = ?", memberID).
		Order("granted_at DESC").
		Find(&grants).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return grants, nil
}

// DeactivateExpired flips is_active off for badges whose expiry has passed.
// Granted rows are left alone so history survives.
func (r *badgeRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Badge{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Update("is_active", false)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
