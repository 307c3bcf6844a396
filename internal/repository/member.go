// Package repository provides data access interfaces and GORM implementations.
package repository

import (
	"context"
	"fmt"
	"time"

	"steeple/internal/models"

	"gorm.io/gorm"
)

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	GetByUsername(ctx context.Context, username string) (*models.Member, error)
	Create(ctx context.Context, member *models.Member) error
	Update(ctx context.Context, member *models.Member) error
	List(ctx context.Context, limit, offset int) ([]models.Member, error)
	BumpKarma(ctx context.Context, id uint, delta models.KarmaDelta) error
	SetAutobanState(ctx context.Context, id uint, score int, lastPost int64) error
	Ban(ctx context.Context, id uint, reason string, bannedBy *uint) error
	ResetAutoban(ctx context.Context, id uint) error
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("Member", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&member).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // Return nil for not found, not an error
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

func (r *memberRepository) GetByUsername(ctx context.Context, username string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&member).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	if err := r.db.WithContext(ctx).Save(member).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *memberRepository) List(ctx context.Context, limit, offset int) ([]models.Member, error) {
	var members []models.Member
	if err := r.db.WithContext(ctx).Limit(limit).Offset(offset).Find(&members).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return members, nil
}

// clampedAdd builds a SQL expression that adds delta to col and floors the
// result at zero. A single UPDATE with this expression is atomic at the
// statement level, so concurrent bumps serialize correctly.
func clampedAdd(col string, delta int) interface{} {
	return gorm.Expr(
		fmt.Sprintf("CASE WHEN %s + ? < 0 THEN 0 ELSE %s + ? END", col, col),
		delta, delta,
	)
}

// BumpKarma applies signed deltas to the member's karma counters, clamped
// at zero per column.
func (r *memberRepository) BumpKarma(ctx context.Context, id uint, delta models.KarmaDelta) error {
	if delta.IsZero() {
		return nil
	}

	updates := map[string]interface{}{}
	if delta.Post != 0 {
		updates["post_karma"] = clampedAdd("post_karma", delta.Post)
	}
	if delta.Reply != 0 {
		updates["reply_karma"] = clampedAdd("reply_karma", delta.Reply)
	}
	if delta.Total != 0 {
		updates["total_karma"] = clampedAdd("total_karma", delta.Total)
	}

	if err := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SetAutobanState persists the running spam score and the last-post timestamp.
func (r *memberRepository) SetAutobanState(ctx context.Context, id uint, score int, lastPost int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"autoban_score":     score,
			"autoban_last_post": lastPost,
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Ban marks the member banned. A nil bannedBy marks the ban as
// system-initiated.
func (r *memberRepository) Ban(ctx context.Context, id uint, reason string, bannedBy *uint) error {
	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"banned":        true,
			"banned_reason": reason,
			"banned_at":     &now,
			"banned_by":     bannedBy,
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ResetAutoban zeroes the spam score and lifts a system ban. Admin-only path.
func (r *memberRepository) ResetAutoban(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"autoban_score":     0,
			"autoban_last_post": 0,
			"banned":            false,
			"banned_reason":     "",
			"banned_at":         nil,
			"banned_by":         nil,
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
