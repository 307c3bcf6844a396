package server

import (
	"context"
	"fmt"
	"strings"

	"steeple/internal/models"
	"steeple/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RecordDonation handles POST /api/donations.
//
// Payment capture happens with the processor before this endpoint is called;
// the request carries the processor's reference and confirmed amount.
func (s *Server) RecordDonation(c *fiber.Ctx) error {
	memberID := currentMemberID(c)

	var req struct {
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
		Fund        string `json:"fund"`
		Recurring   bool   `json:"recurring"`
		ExternalRef string `json:"external_ref"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.AmountCents <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Amount must be positive"))
	}
	if req.ExternalRef == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("External payment reference is required"))
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	req.Currency = strings.ToUpper(req.Currency)
	if len(req.Currency) != 3 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Currency must be a 3-letter code"))
	}

	member, err := s.memberRepo.GetByID(c.Context(), memberID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	// Counted before the insert so the first gift sees zero prior rows.
	priorCount, err := s.donationRepo.CountByMember(c.Context(), memberID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	donation := &models.Donation{
		MemberID:    &memberID,
		DonorEmail:  member.Email,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Fund:        req.Fund,
		Recurring:   req.Recurring,
		ExternalRef: req.ExternalRef,
	}
	if err := s.donationRepo.Create(c.Context(), donation); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	trigger := models.TriggerDonation
	if priorCount == 0 {
		trigger = models.TriggerFirstDonation
	}
	donationID := donation.ID
	amountCents := req.AmountCents
	go func() {
		ctx := context.Background()
		s.automationService.EnqueueForTrigger(ctx, trigger, service.TriggerTarget{
			MemberID: &memberID,
			DonorID:  &donationID,
		})
		s.notificationService.CreateAdmin(ctx, service.CreateAdminNotificationInput{
			Type:    "new_donation",
			Message: fmt.Sprintf("%s gave $%.2f", member.Username, float64(amountCents)/100),
		})
	}()

	return c.Status(fiber.StatusCreated).JSON(donation)
}
