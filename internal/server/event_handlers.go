package server

import (
	"context"
	"fmt"
	"time"

	"steeple/internal/models"
	"steeple/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetEvents handles GET /api/events
func (s *Server) GetEvents(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	events, err := s.eventRepo.ListUpcoming(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"events": events})
}

// GetEvent handles GET /api/events/:id
func (s *Server) GetEvent(c *fiber.Ctx) error {
	eventID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	event, err := s.eventRepo.GetByID(c.Context(), eventID)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	count, err := s.eventRepo.CountRSVPs(c.Context(), eventID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"event": event, "rsvp_count": count})
}

// RSVPEvent handles POST /api/events/:id/rsvp
func (s *Server) RSVPEvent(c *fiber.Ctx) error {
	eventID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID := currentMemberID(c)

	var req struct {
		Status string `json:"status"`
		Guests int    `json:"guests"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Status == "" {
		req.Status = models.RSVPStatusGoing
	}
	switch req.Status {
	case models.RSVPStatusGoing, models.RSVPStatusMaybe, models.RSVPStatusDeclined:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Status must be going, maybe, or declined"))
	}
	if req.Guests < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Guests cannot be negative"))
	}

	event, err := s.eventRepo.GetByID(c.Context(), eventID)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if event.Capacity > 0 && req.Status == models.RSVPStatusGoing {
		count, err := s.eventRepo.CountRSVPs(c.Context(), eventID)
		if err == nil && count >= int64(event.Capacity) {
			return models.RespondWithError(c, fiber.StatusConflict,
				models.NewConflictError("Event is at capacity"))
		}
	}

	rsvp := &models.EventRSVP{
		EventID:  eventID,
		MemberID: memberID,
		Status:   req.Status,
		Guests:   req.Guests,
	}
	if err := s.eventRepo.UpsertRSVP(c.Context(), rsvp); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if req.Status == models.RSVPStatusGoing {
		eventTitle := event.Title
		startsAt := event.StartsAt
		go func() {
			ctx := context.Background()
			s.notificationService.CreateMember(ctx, service.CreateMemberNotificationInput{
				MemberID: memberID,
				Category: models.NotifCategoryEvent,
				Type:     "rsvp_confirmed",
				Message:  fmt.Sprintf("You're going to %q on %s", eventTitle, startsAt.Format("Jan 2")),
				Link:     fmt.Sprintf("/events/%d", eventID),
			})
			s.automationService.EnqueueForTrigger(ctx, models.TriggerEventRSVP, service.TriggerTarget{
				MemberID: &memberID,
				EventID:  &eventID,
			})
		}()
	}

	return c.Status(fiber.StatusCreated).JSON(rsvp)
}

// CreateEvent handles POST /api/admin/events
func (s *Server) CreateEvent(c *fiber.Ctx) error {
	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Location    string     `json:"location"`
		StartsAt    time.Time  `json:"starts_at"`
		EndsAt      *time.Time `json:"ends_at"`
		Capacity    int        `json:"capacity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Title == "" || req.StartsAt.IsZero() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title and starts_at are required"))
	}
	if req.EndsAt != nil && req.EndsAt.Before(req.StartsAt) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Event cannot end before it starts"))
	}

	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
	}
	if err := s.eventRepo.Create(c.Context(), event); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// GetEventRSVPs handles GET /api/admin/events/:id/rsvps
func (s *Server) GetEventRSVPs(c *fiber.Ctx) error {
	eventID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	rsvps, err := s.eventRepo.ListRSVPs(c.Context(), eventID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"rsvps": rsvps})
}
