package repository

import (
	"context"
	"time"

	"steeple/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository defines the interface for event data operations
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	ListUpcoming(ctx context.Context, limit, offset int) ([]models.Event, error)
	UpsertRSVP(ctx context.Context, rsvp *models.EventRSVP) error
	CountRSVPs(ctx context.Context, eventID uint) (int64, error)
	ListRSVPs(ctx context.Context, eventID uint) ([]models.EventRSVP, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("Event", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &event, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, limit, offset int) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).
		Where("starts_at > ?", time.Now()).
		Order("starts_at ASC").
		Limit(limit).Offset(offset).
		Find(&events).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return events, nil
}

// UpsertRSVP creates or updates the member's response in place; re-RSVPing
// never duplicates the (event, member) row.
func (r *eventRepository) UpsertRSVP(ctx context.Context, rsvp *models.EventRSVP) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "member_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "guests", "updated_at"}),
		}).
		Create(rsvp).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *eventRepository) CountRSVPs(ctx context.Context, eventID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.EventRSVP{}).
		Where("event_id = ? AND status = ?", eventID, models.RSVPStatusGoing).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *eventRepository) ListRSVPs(ctx context.Context, eventID uint) ([]models.EventRSVP, error) {
	var rsvps []models.EventRSVP
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&rsvps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rsvps, nil
}
