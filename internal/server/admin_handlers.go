package server

import (
	"context"
	"fmt"
	"time"

	"steeple/internal/cache"
	"steeple/internal/models"
	"steeple/internal/service"

	"github.com/gofiber/fiber/v2"
)

const dashboardCacheTTL = 30 * time.Second

// DashboardStats is the admin overview payload.
type DashboardStats struct {
	TotalMembers       int64 `json:"total_members"`
	OnlineMembers      int64 `json:"online_members"`
	BannedMembers      int64 `json:"banned_members"`
	TotalThreads       int64 `json:"total_threads"`
	TotalDonationCents int64 `json:"total_donation_cents"`
	PendingEmails      int64 `json:"pending_emails"`
}

// GetDashboardStats handles GET /api/admin/dashboard. The aggregate is
// cached briefly; online member count is always read live since it is
// already cheap.
func (s *Server) GetDashboardStats(c *fiber.Ctx) error {
	ctx := c.Context()

	var stats DashboardStats
	err := cache.CacheAside(ctx, "admin:dashboard", &stats, dashboardCacheTTL, func() error {
		if err := s.db.WithContext(ctx).Model(&models.Member{}).
			Count(&stats.TotalMembers).Error; err != nil {
			return err
		}
		if err := s.db.WithContext(ctx).Model(&models.Member{}).
			Where("banned = ?", true).Count(&stats.BannedMembers).Error; err != nil {
			return err
		}
		if err := s.db.WithContext(ctx).Model(&models.ForumThread{}).
			Count(&stats.TotalThreads).Error; err != nil {
			return err
		}
		total, err := s.donationRepo.TotalCents(ctx)
		if err != nil {
			return err
		}
		stats.TotalDonationCents = total

		if err := s.db.WithContext(ctx).Model(&models.AutomationQueueEntry{}).
			Where("status = ?", models.QueueStatusPending).
			Count(&stats.PendingEmails).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if s.hub != nil {
		stats.OnlineMembers = s.hub.OnlineMembers(ctx)
	}
	return c.JSON(stats)
}

// GetMembers handles GET /api/admin/members
func (s *Server) GetMembers(c *fiber.Ctx) error {
	p := parsePagination(c, 50)

	members, err := s.memberRepo.List(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"members": members})
}

// ResetMemberAutoban handles POST /api/admin/members/:id/autoban-reset.
// Clears the spam score and lifts any ban in one step.
func (s *Server) ResetMemberAutoban(c *fiber.Ctx) error {
	memberID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.memberRepo.GetByID(c.Context(), memberID); err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if err := s.memberRepo.ResetAutoban(c.Context(), memberID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAdminNotifications handles GET /api/admin/notifications
func (s *Server) GetAdminNotifications(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	notifs, err := s.notifRepo.ListAdmin(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"notifications": notifs})
}

// MarkAdminNotificationRead handles POST /api/admin/notifications/:id/read
func (s *Server) MarkAdminNotificationRead(c *fiber.Ctx) error {
	notifID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.notifRepo.MarkAdminRead(c.Context(), notifID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetBadges handles GET /api/admin/badges
func (s *Server) GetBadges(c *fiber.Ctx) error {
	badges, err := s.badgeRepo.List(c.Context())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"badges": badges})
}

// CreateBadge handles POST /api/admin/badges
func (s *Server) CreateBadge(c *fiber.Ctx) error {
	var req struct {
		Name      string     `json:"name"`
		BadgeKey  string     `json:"badge_key"`
		IconURL   string     `json:"icon_url"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name == "" || req.BadgeKey == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name and badge_key are required"))
	}

	badge := &models.Badge{
		Name:      req.Name,
		BadgeKey:  req.BadgeKey,
		IconURL:   req.IconURL,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.badgeRepo.Create(c.Context(), badge); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusCreated).JSON(badge)
}

// UpdateBadge handles PUT /api/admin/badges/:id
func (s *Server) UpdateBadge(c *fiber.Ctx) error {
	badgeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	badge, err := s.badgeRepo.GetByID(c.Context(), badgeID)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	var req struct {
		Name      *string    `json:"name"`
		IconURL   *string    `json:"icon_url"`
		IsActive  *bool      `json:"is_active"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name != nil {
		badge.Name = *req.Name
	}
	if req.IconURL != nil {
		badge.IconURL = *req.IconURL
	}
	if req.IsActive != nil {
		badge.IsActive = *req.IsActive
	}
	if req.ExpiresAt != nil {
		badge.ExpiresAt = req.ExpiresAt
	}

	if err := s.badgeRepo.Update(c.Context(), badge); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(badge)
}

// AwardBadge handles POST /api/admin/badges/:id/award/:memberId. Granting is
// idempotent; awarding an already-held badge reports granted=false.
func (s *Server) AwardBadge(c *fiber.Ctx) error {
	badgeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID, err := s.parseID(c, "memberId")
	if err != nil {
		return nil
	}

	badge, err := s.badgeRepo.GetByID(c.Context(), badgeID)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if _, err := s.memberRepo.GetByID(c.Context(), memberID); err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	granted, err := s.badgeRepo.Grant(c.Context(), memberID, badgeID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if granted {
		badgeName := badge.Name
		go func() {
			s.notificationService.CreateMember(context.Background(), service.CreateMemberNotificationInput{
				MemberID: memberID,
				Category: models.NotifCategoryAccount,
				Type:     "badge_granted",
				Message:  fmt.Sprintf("You earned the %q badge", badgeName),
				Link:     "/profile/badges",
			})
		}()
	}

	return c.JSON(fiber.Map{"granted": granted})
}

// GetSequences handles GET /api/admin/sequences
func (s *Server) GetSequences(c *fiber.Ctx) error {
	sequences, err := s.autoRepo.ListSequences(c.Context())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"sequences": sequences})
}

// CreateSequence handles POST /api/admin/sequences
func (s *Server) CreateSequence(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		TriggerType string `json:"trigger_type"`
		IsActive    *bool  `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name == "" || req.TriggerType == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name and trigger_type are required"))
	}
	switch req.TriggerType {
	case models.TriggerMemberSignup, models.TriggerEmailSignup,
		models.TriggerDonation, models.TriggerFirstDonation, models.TriggerEventRSVP:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unknown trigger type"))
	}

	seq := &models.AutomationSequence{
		Name:        req.Name,
		TriggerType: req.TriggerType,
		IsActive:    true,
	}
	if req.IsActive != nil {
		seq.IsActive = *req.IsActive
	}
	if err := s.autoRepo.CreateSequence(c.Context(), seq); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusCreated).JSON(seq)
}

// UpdateSequence handles PUT /api/admin/sequences/:id
func (s *Server) UpdateSequence(c *fiber.Ctx) error {
	seqID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name     *string `json:"name"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var seq models.AutomationSequence
	if err := s.db.WithContext(c.Context()).First(&seq, seqID).Error; err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Sequence", seqID))
	}
	if req.Name != nil {
		seq.Name = *req.Name
	}
	if req.IsActive != nil {
		seq.IsActive = *req.IsActive
	}

	if err := s.autoRepo.UpdateSequence(c.Context(), &seq); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(seq)
}

// CreateSequenceStep handles POST /api/admin/sequences/:id/steps
func (s *Server) CreateSequenceStep(c *fiber.Ctx) error {
	seqID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		StepOrder int    `json:"step_order"`
		DelayDays int    `json:"delay_days"`
		Subject   string `json:"subject"`
		Template  string `json:"template"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Subject == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Subject is required"))
	}
	if req.DelayDays < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Delay days cannot be negative"))
	}

	var seq models.AutomationSequence
	if err := s.db.WithContext(c.Context()).First(&seq, seqID).Error; err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Sequence", seqID))
	}

	step := &models.AutomationStep{
		SequenceID: seqID,
		StepOrder:  req.StepOrder,
		DelayDays:  req.DelayDays,
		Subject:    req.Subject,
		Template:   req.Template,
	}
	if err := s.autoRepo.CreateStep(c.Context(), step); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusCreated).JSON(step)
}
