package repository

import (
	"context"

	"steeple/internal/models"

	"gorm.io/gorm"
)

// DonationRepository defines the interface for donation data operations
type DonationRepository interface {
	Create(ctx context.Context, donation *models.Donation) error
	CountByMember(ctx context.Context, memberID uint) (int64, error)
	List(ctx context.Context, limit, offset int) ([]models.Donation, error)
	TotalCents(ctx context.Context) (int64, error)
}

type donationRepository struct {
	db *gorm.DB
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(ctx context.Context, donation *models.Donation) error {
	if err := r.db.WithContext(ctx).Create(donation).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *donationRepository) CountByMember(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Donation{}).
		Where("member_id = ?", memberID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *donationRepository) List(ctx context.Context, limit, offset int) ([]models.Donation, error) {
	var donations []models.Donation
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&donations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return donations, nil
}

func (r *donationRepository) TotalCents(ctx context.Context) (int64, error) {
	var total *int64
	if err := r.db.WithContext(ctx).Model(&models.Donation{}).
		Select("SUM(amount_cents)").
		Scan(&total).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
