package repository

import (
	"context"

	"steeple/internal/models"

	"gorm.io/gorm"
)

// ForumRepository defines the interface for forum data operations
type ForumRepository interface {
	GetCommunity(ctx context.Context, id uint) (*models.Community, error)
	ListCommunities(ctx context.Context) ([]models.Community, error)
	CreateThread(ctx context.Context, thread *models.ForumThread) error
	GetThread(ctx context.Context, id uint) (*models.ForumThread, error)
	ListThreads(ctx context.Context, communityID uint, limit, offset int) ([]models.ForumThread, error)
	CreateReply(ctx context.Context, reply *models.ForumReply) error
	ListReplies(ctx context.Context, threadID uint, limit, offset int) ([]models.ForumReply, error)
	CountThreadsByMember(ctx context.Context, memberID uint) (int64, error)
	CountRepliesByMember(ctx context.Context, memberID uint) (int64, error)
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository creates a new forum repository
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) GetCommunity(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("Community", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &community, nil
}

func (r *forumRepository) ListCommunities(ctx context.Context) ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *forumRepository) CreateThread(ctx context.Context, thread *models.ForumThread) error {
	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *forumRepository) GetThread(ctx context.Context, id uint) (*models.ForumThread, error) {
	var thread models.ForumThread
	if err := r.db.WithContext(ctx).Preload("Member").First(&thread, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("Thread", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &thread, nil
}

func (r *forumRepository) ListThreads(ctx context.Context, communityID uint, limit, offset int) ([]models.ForumThread, error) {
	var threads []models.ForumThread
	query := r.db.WithContext(ctx).
		Select("forum_threads.*, (SELECT COUNT(*) FROM forum_replies WHERE forum_replies.thread_id = forum_threads.id AND forum_replies.deleted_at IS NULL) AS replies_count").
		Preload("Member").
		Order("created_at DESC").
		Limit(limit).Offset(offset)
	if communityID != 0 {
		query = query.Where("community_id = ?", communityID)
	}
	if err := query.Find(&threads).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return threads, nil
}

func (r *forumRepository) CreateReply(ctx context.Context, reply *models.ForumReply) error {
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *forumRepository) ListReplies(ctx context.Context, threadID uint, limit, offset int) ([]models.ForumReply, error) {
	var replies []models.ForumReply
	if err := r.db.WithContext(ctx).
		Preload("Member").
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&replies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return replies, nil
}

func (r *forumRepository) CountThreadsByMember(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ForumThread{}).
		Where("member_id = ?", memberID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *forumRepository) CountRepliesByMember(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ForumReply{}).
		Where("member_id = ?", memberID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
