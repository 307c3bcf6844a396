package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"steeple/internal/models"
	"steeple/internal/observability"
	"steeple/internal/repository"
)

// Broadcaster pushes JSON payloads onto realtime channels. Delivery is
// best-effort, at-most-once.
type Broadcaster interface {
	PublishMember(ctx context.Context, memberID uint, payload string) error
	PublishAdmin(ctx context.Context, payload string) error
}

// CreateAdminNotificationInput is the input for admin-facing notifications.
type CreateAdminNotificationInput struct {
	Type     string
	Message  string
	Metadata string
	AdminID  *uint
}

// CreateMemberNotificationInput is the input for member-facing notifications.
type CreateMemberNotificationInput struct {
	MemberID uint
	Category string
	Type     string
	Message  string
	Link     string
}

// NotificationService writes notification rows and fans them out over the
// realtime channel. Failures are logged and swallowed; the triggering
// action is never rolled back or retried because a notification failed.
type NotificationService struct {
	notifRepo   repository.NotificationRepository
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewNotificationService returns a new NotificationService. A nil
// broadcaster disables realtime fan-out but rows are still written.
func NewNotificationService(notifRepo repository.NotificationRepository, broadcaster Broadcaster, logger *slog.Logger) *NotificationService {
	return &NotificationService{notifRepo: notifRepo, broadcaster: broadcaster, logger: logger}
}

// CreateAdmin unconditionally inserts the row and broadcasts to every
// connected admin session. There are no per-admin preferences.
func (s *NotificationService) CreateAdmin(ctx context.Context, in CreateAdminNotificationInput) {
	n := &models.AdminNotification{
		Type:      in.Type,
		Message:   in.Message,
		Metadata:  in.Metadata,
		AdminID:   in.AdminID,
		CreatedAt: time.Now(),
	}
	if err := s.notifRepo.CreateAdmin(ctx, n); err != nil {
		s.sideEffectError(ctx, "admin insert", err)
		return
	}
	observability.NotificationsCreated.WithLabelValues("admin").Inc()

	if s.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.sideEffectError(ctx, "admin marshal", err)
		return
	}
	if err := s.broadcaster.PublishAdmin(ctx, string(payload)); err != nil {
		s.sideEffectError(ctx, "admin publish", err)
	}
}

// CreateMember checks the member's preference for the type first: an
// explicitly disabled setting makes the whole call a silent no-op. With no
// setting row, or an enabled one, the row is inserted and broadcast to
// that member's channel only.
func (s *NotificationService) CreateMember(ctx context.Context, in CreateMemberNotificationInput) {
	setting, err := s.notifRepo.GetSetting(ctx, in.MemberID, in.Type)
	if err != nil {
		s.sideEffectError(ctx, "setting lookup", err)
		return
	}
	if setting != nil && !setting.Enabled {
		observability.NotificationsSuppressed.WithLabelValues(in.Type).Inc()
		return
	}

	n := &models.MemberNotification{
		MemberID:  in.MemberID,
		Category:  in.Category,
		Type:      in.Type,
		Message:   in.Message,
		Link:      in.Link,
		CreatedAt: time.Now(),
	}
	if err := s.notifRepo.CreateMember(ctx, n); err != nil {
		s.sideEffectError(ctx, "member insert", err)
		return
	}
	observability.NotificationsCreated.WithLabelValues("member").Inc()

	if s.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.sideEffectError(ctx, "member marshal", err)
		return
	}
	if err := s.broadcaster.PublishMember(ctx, in.MemberID, string(payload)); err != nil {
		s.sideEffectError(ctx, "member publish", err)
	}
}

func (s *NotificationService) sideEffectError(ctx context.Context, stage string, err error) {
	observability.SideEffectErrors.WithLabelValues("notification").Inc()
	s.logger.WarnContext(ctx, "notification delivery failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}
