package server

import (
	"context"
	"fmt"

	"steeple/internal/models"
	"steeple/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Karma awarded for forum activity. Negative deltas only occur on content
// removal; the SQL clamps counters at zero either way.
var (
	threadKarma = models.KarmaDelta{Post: 5, Total: 5}
	replyKarma  = models.KarmaDelta{Reply: 2, Total: 2}
)

// GetCommunities handles GET /api/communities
func (s *Server) GetCommunities(c *fiber.Ctx) error {
	communities, err := s.forumRepo.ListCommunities(c.Context())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"communities": communities})
}

// GetThreads handles GET /api/communities/:id/threads
func (s *Server) GetThreads(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	threads, err := s.forumRepo.ListThreads(c.Context(), communityID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"threads": threads})
}

// GetThread handles GET /api/threads/:id
func (s *Server) GetThread(c *fiber.Ctx) error {
	threadID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	thread, err := s.forumRepo.GetThread(c.Context(), threadID)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(thread)
}

// GetReplies handles GET /api/threads/:id/replies
func (s *Server) GetReplies(c *fiber.Ctx) error {
	threadID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	replies, err := s.forumRepo.ListReplies(c.Context(), threadID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"replies": replies})
}

// GetCommunityLeaderboard handles GET /api/communities/:id/leaderboard
func (s *Server) GetCommunityLeaderboard(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 10)

	top, err := s.karmaRepo.TopCommunityMembers(c.Context(), communityID, p.Limit)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"leaderboard": top})
}

// CreateThread handles POST /api/communities/:id/threads.
//
// The autoban check runs inline and its verdict gates the post; every other
// engagement rule (karma, badges, notifications) runs detached afterwards.
func (s *Server) CreateThread(c *fiber.Ctx) error {
	communityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID := currentMemberID(c)

	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Title == "" || req.Body == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title and body are required"))
	}

	if _, err := s.forumRepo.GetCommunity(c.Context(), communityID); err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if rejected := s.gateSpam(c, memberID, req.Title+" "+req.Body); rejected {
		return nil
	}

	thread := &models.ForumThread{
		CommunityID: communityID,
		MemberID:    memberID,
		Title:       req.Title,
		Body:        req.Body,
	}
	if err := s.forumRepo.CreateThread(c.Context(), thread); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	go func() {
		ctx := context.Background()
		s.karmaService.BumpMember(ctx, memberID, threadKarma)
		s.karmaService.BumpCommunity(ctx, communityID, memberID, threadKarma)
		s.badgeService.EvaluateAutoBadges(ctx, memberID)
	}()

	return c.Status(fiber.StatusCreated).JSON(thread)
}

// CreateReply handles POST /api/threads/:id/replies.
func (s *Server) CreateReply(c *fiber.Ctx) error {
	threadID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID := currentMemberID(c)

	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Body == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Body is required"))
	}

	thread, err := s.forumRepo.GetThread(c.Context(), threadID)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if rejected := s.gateSpam(c, memberID, req.Body); rejected {
		return nil
	}

	reply := &models.ForumReply{
		ThreadID: threadID,
		MemberID: memberID,
		Body:     req.Body,
	}
	if err := s.forumRepo.CreateReply(c.Context(), reply); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	threadAuthorID := thread.MemberID
	threadTitle := thread.Title
	communityID := thread.CommunityID
	go func() {
		ctx := context.Background()
		s.karmaService.BumpMember(ctx, memberID, replyKarma)
		s.karmaService.BumpCommunity(ctx, communityID, memberID, replyKarma)
		s.badgeService.EvaluateAutoBadges(ctx, memberID)

		// Don't notify members replying to themselves.
		if threadAuthorID != memberID {
			s.notificationService.CreateMember(ctx, service.CreateMemberNotificationInput{
				MemberID: threadAuthorID,
				Category: models.NotifCategoryForum,
				Type:     "thread_reply",
				Message:  fmt.Sprintf("New reply in %q", threadTitle),
				Link:     fmt.Sprintf("/threads/%d", threadID),
			})
		}
	}()

	return c.Status(fiber.StatusCreated).JSON(reply)
}

// gateSpam runs the autoban check inline. A true return means the response
// has been written and the post must not proceed. Scoring errors fail open;
// losing a post to a scoring hiccup is worse than letting one through.
func (s *Server) gateSpam(c *fiber.Ctx, memberID uint, body string) bool {
	banned, err := s.autobanService.Check(c.Context(), memberID, body)
	if err != nil {
		return false
	}
	if banned {
		_ = models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Account has been banned for spam"))

		// The ban itself is admin-visible.
		go func(id uint) {
			s.notificationService.CreateAdmin(context.Background(), service.CreateAdminNotificationInput{
				Type:    "member_autobanned",
				Message: fmt.Sprintf("Member %d was banned by the spam scorer", id),
			})
		}(memberID)
		return true
	}

	// A previously banned member may still hold a valid token.
	member, err := s.memberRepo.GetByID(c.Context(), memberID)
	if err == nil && member.Banned {
		_ = models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Account is banned"))
		return true
	}
	return false
}
