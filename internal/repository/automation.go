package repository

import (
	"context"
	"time"

	"steeple/internal/models"

	"gorm.io/gorm"
)

// AutomationRepository defines the interface for email automation data operations
type AutomationRepository interface {
	ActiveSequencesByTrigger(ctx context.Context, triggerType string) ([]models.AutomationSequence, error)
	StepsForSequence(ctx context.Context, sequenceID uint) ([]models.AutomationStep, error)
	Enqueue(ctx context.Context, entries []models.AutomationQueueEntry) error
	DueEntries(ctx context.Context, now time.Time, limit int) ([]models.AutomationQueueEntry, error)
	MarkSent(ctx context.Context, entryID uint) error
	MarkFailed(ctx context.Context, entryID uint, reason string) error
	CreateSequence(ctx context.Context, seq *models.AutomationSequence) error
	UpdateSequence(ctx context.Context, seq *models.AutomationSequence) error
	ListSequences(ctx context.Context) ([]models.AutomationSequence, error)
	CreateStep(ctx context.Context, step *models.AutomationStep) error
	GetStep(ctx context.Context, stepID uint) (*models.AutomationStep, error)
}

type automationRepository struct {
	db *gorm.DB
}

// NewAutomationRepository creates a new automation repository
func NewAutomationRepository(db *gorm.DB) AutomationRepository {
	return &automationRepository{db: db}
}

func (r *automationRepository) ActiveSequencesByTrigger(ctx context.Context, triggerType string) ([]models.AutomationSequence, error) {
	var seqs []models.AutomationSequence
	if err := r.db.WithContext(ctx).
		Where("trigger_type = ? AND is_active = ?", triggerType, true).
		Find(&seqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return seqs, nil
}

func (r *automationRepository) StepsForSequence(ctx context.Context, sequenceID uint) ([]models.AutomationStep, error) {
	var steps []models.AutomationStep
	if err := r.db.WithContext(ctx).
		Where("sequence_id = ?", sequenceID).
		Order("step_order ASC").
		Find(&steps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return steps, nil
}

// Enqueue inserts the batch of pending entries. Inserts are not wrapped in
// a transaction across sequences; a failure partway leaves earlier rows in
// place, matching the best-effort contract of the enqueuer.
func (r *automationRepository) Enqueue(ctx context.Context, entries []models.AutomationQueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *automationRepository) DueEntries(ctx context.Context, now time.Time, limit int) ([]models.AutomationQueueEntry, error) {
	var entries []models.AutomationQueueEntry
	if err := r.db.WithContext(ctx).
		Where("status = ? AND run_at <= ?", models.QueueStatusPending, now).
		Order("run_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

func (r *automationRepository) MarkSent(ctx context.Context, entryID uint) error {
	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&models.AutomationQueueEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"status":  models.QueueStatusSent,
			"sent_at": &now,
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *automationRepository) MarkFailed(ctx context.Context, entryID uint, reason string) error {
	if err := r.db.WithContext(ctx).Model(&models.AutomationQueueEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"status":     models.QueueStatusFailed,
			"last_error": reason,
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *automationRepository) CreateSequence(ctx context.Context, seq *models.AutomationSequence) error {
	if err := r.db.WithContext(ctx).Create(seq).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *automationRepository) UpdateSequence(ctx context.Context, seq *models.AutomationSequence) error {
	if err := r.db.WithContext(ctx).Save(seq).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *automationRepository) ListSequences(ctx context.Context) ([]models.AutomationSequence, error) {
	var seqs []models.AutomationSequence
	if err := r.db.WithContext(ctx).Preload("Steps").Order("created_at DESC").Find(&seqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return seqs, nil
}

func (r *automationRepository) CreateStep(ctx context.Context, step *models.AutomationStep) error {
	if err := r.db.WithContext(ctx).Create(step).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *automationRepository) GetStep(ctx context.Context, stepID uint) (*models.AutomationStep, error) {
	var step models.AutomationStep
	if err := r.db.WithContext(ctx).First(&step, stepID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &step, nil
}
