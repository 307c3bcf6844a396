package server

import (
	"steeple/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyNotifications handles GET /api/notifications
func (s *Server) GetMyNotifications(c *fiber.Ctx) error {
	memberID := currentMemberID(c)
	p := parsePagination(c, 20)

	notifs, err := s.notifRepo.ListMember(c.Context(), memberID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"notifications": notifs})
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	memberID := currentMemberID(c)

	count, err := s.notifRepo.CountUnread(c.Context(), memberID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	notifID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID := currentMemberID(c)

	if err := s.notifRepo.MarkMemberRead(c.Context(), memberID, notifID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	memberID := currentMemberID(c)

	if err := s.notifRepo.MarkAllMemberRead(c.Context(), memberID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearMyNotifications handles DELETE /api/notifications
func (s *Server) ClearMyNotifications(c *fiber.Ctx) error {
	memberID := currentMemberID(c)

	if err := s.notifRepo.ClearMember(c.Context(), memberID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetNotificationSettings handles GET /api/notifications/settings.
//
// Only explicitly-set rows come back; types with no row are enabled by
// default and the client renders them that way.
func (s *Server) GetNotificationSettings(c *fiber.Ctx) error {
	memberID := currentMemberID(c)

	settings, err := s.notifRepo.ListSettings(c.Context(), memberID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"settings": settings})
}

// UpdateNotificationSetting handles PUT /api/notifications/settings
func (s *Server) UpdateNotificationSetting(c *fiber.Ctx) error {
	memberID := currentMemberID(c)

	var req struct {
		Type    string `json:"type"`
		Enabled bool   `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Type == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Notification type is required"))
	}

	setting := &models.NotificationSetting{
		MemberID: memberID,
		Type:     req.Type,
		Enabled:  req.Enabled,
	}
	if err := s.notifRepo.UpsertSetting(c.Context(), setting); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(setting)
}
