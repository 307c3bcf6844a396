package repository

import (
	"context"
	"time"

	"steeple/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KarmaRepository handles the per-community karma accumulator rows.
type KarmaRepository interface {
	UpsertCommunityDelta(ctx context.Context, communityID, memberID uint, delta models.KarmaDelta) error
	GetCommunityKarma(ctx context.Context, communityID, memberID uint) (*models.CommunityKarma, error)
	TopCommunityMembers(ctx context.Context, communityID uint, limit int) ([]models.CommunityKarma, error)
}

type karmaRepository struct {
	db *gorm.DB
}

// NewKarmaRepository creates a new karma repository
func NewKarmaRepository(db *gorm.DB) KarmaRepository {
	return &karmaRepository{db: db}
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// UpsertCommunityDelta applies the delta to the (community, member) row,
// creating it when absent. An absent row behaves like zeroes: a negative
// first delta lands as zero, and updates clamp at zero per column.
func (r *karmaRepository) UpsertCommunityDelta(ctx context.Context, communityID, memberID uint, delta models.KarmaDelta) error {
	if delta.IsZero() {
		return nil
	}

	row := models.CommunityKarma{
		CommunityID: communityID,
		MemberID:    memberID,
		PostKarma:   clampNonNegative(delta.Post),
		ReplyKarma:  clampNonNegative(delta.Reply),
		TotalKarma:  clampNonNegative(delta.Total),
		LastUpdated: time.Now(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "community_id"}, {Name: "member_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"post_karma":   clampedAdd("post_karma", delta.Post),
				"reply_karma":  clampedAdd("reply_karma", delta.Reply),
				"total_karma":  clampedAdd("total_karma", delta.Total),
				"last_updated": time.Now(),
			}),
		}).
		Create(&row).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *karmaRepository) GetCommunityKarma(ctx context.Context, communityID, memberID uint) (*models.CommunityKarma, error) {
	var row models.CommunityKarma
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ?", communityID, memberID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &row, nil
}

func (r *karmaRepository) TopCommunityMembers(ctx context.Context, communityID uint, limit int) ([]models.CommunityKarma, error) {
	var rows []models.CommunityKarma
	if err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("total_karma DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
