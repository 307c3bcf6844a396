// Package service contains the member-engagement rule evaluators and
// supporting business logic.
package service

import (
	"context"
	"log/slog"
	"time"

	"steeple/internal/models"
	"steeple/internal/observability"
	"steeple/internal/repository"
)

// Auto-badge thresholds. The driver re-evaluates every threshold on each
// triggering event; redundant calls are harmless because the grant itself
// is idempotent.
const (
	firstThreadThreshold = 1
	activeMemberReplies  = 20
	activeMemberThreads  = 5
)

// BadgeService evaluates badge-granting rules.
type BadgeService struct {
	badgeRepo repository.BadgeRepository
	forumRepo repository.ForumRepository
	logger    *slog.Logger
}

// NewBadgeService returns a new BadgeService.
func NewBadgeService(badgeRepo repository.BadgeRepository, forumRepo repository.ForumRepository, logger *slog.Logger) *BadgeService {
	return &BadgeService{badgeRepo: badgeRepo, forumRepo: forumRepo, logger: logger}
}

// AwardIfEligible grants the badge to the member if the badge exists, is
// active and unexpired, and the member does not already hold it. Returns
// true only when a new grant was created. A badge lookup miss is a silent
// no-op, not an error.
func (s *BadgeService) AwardIfEligible(ctx context.Context, memberID uint, badgeKey string) (bool, error) {
	badge, err := s.badgeRepo.GetActiveByKey(ctx, badgeKey)
	if err != nil {
		return false, err
	}
	if badge == nil {
		return false, nil
	}

	granted, err := s.badgeRepo.Grant(ctx, memberID, badge.ID)
	if err != nil {
		return false, err
	}
	if granted {
		observability.BadgesGranted.WithLabelValues(badgeKey).Inc()
		s.logger.InfoContext(ctx, "badge granted",
			slog.Uint64("member_id", uint64(memberID)),
			slog.String("badge_key", badgeKey),
		)
	}
	return granted, nil
}

// EvaluateAutoBadges recomputes the member's activity counters and runs
// every auto-badge threshold. Called after each thread or reply; errors are
// logged and swallowed because badge granting is best-effort bookkeeping
// decoupled from the primary action.
func (s *BadgeService) EvaluateAutoBadges(ctx context.Context, memberID uint) {
	threads, err := s.forumRepo.CountThreadsByMember(ctx, memberID)
	if err != nil {
		s.sideEffectError(ctx, memberID, err)
		return
	}
	replies, err := s.forumRepo.CountRepliesByMember(ctx, memberID)
	if err != nil {
		s.sideEffectError(ctx, memberID, err)
		return
	}

	if threads >= firstThreadThreshold {
		if _, err := s.AwardIfEligible(ctx, memberID, models.BadgeKeyFirstThread); err != nil {
			s.sideEffectError(ctx, memberID, err)
		}
	}
	if replies >= activeMemberReplies || threads >= activeMemberThreads {
		if _, err := s.AwardIfEligible(ctx, memberID, models.BadgeKeyActiveMember); err != nil {
			s.sideEffectError(ctx, memberID, err)
		}
	}
}

// DeactivateExpired flips is_active off for badges past their expiry.
// Invoked by the scheduled sweep.
func (s *BadgeService) DeactivateExpired(ctx context.Context) (int64, error) {
	n, err := s.badgeRepo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired badges deactivated", slog.Int64("count", n))
	}
	return n, nil
}

func (s *BadgeService) sideEffectError(ctx context.Context, memberID uint, err error) {
	observability.SideEffectErrors.WithLabelValues("badge").Inc()
	s.logger.WarnContext(ctx, "auto badge evaluation failed",
		slog.Uint64("member_id", uint64(memberID)),
		slog.String("error", err.Error()),
	)
}
