package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"steeple/internal/models"
	"steeple/internal/observability"
	"steeple/internal/repository"
)

const (
	autobanThreshold = 5

	// Posting faster than these windows raises the score. Both penalties
	// stack for very fast posting.
	fastPostWindow      = 8 * time.Second
	veryFastPostWindow  = 3 * time.Second
	fastPostPenalty     = 2
	veryFastPostPenalty = 3

	spamContentPenalty = 5

	autobanReason = "Automatic ban: spam detection threshold exceeded"
)

// Substring matches are case-insensitive. The lists are fixed; tuning them
// is an admin/deploy concern, not member-configurable.
var spamKeywords = []string{
	"bitcoin",
	"crypto giveaway",
	"forex",
	"viagra",
	"casino bonus",
	"work from home",
	"click here to claim",
}

var suspiciousDomains = []string{
	"bit.ly",
	"tinyurl.com",
	"t.co/",
	"goo.gl",
	"cutt.ly",
}

// AutobanService scores posting behavior for spam and bans members past
// the threshold. The score is monotonic: nothing here ever lowers it, only
// a manual admin reset does. A member sitting near the threshold stays
// there indefinitely.
type AutobanService struct {
	memberRepo repository.MemberRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewAutobanService returns a new AutobanService.
func NewAutobanService(memberRepo repository.MemberRepository, logger *slog.Logger) *AutobanService {
	return &AutobanService{memberRepo: memberRepo, logger: logger, now: time.Now}
}

// Check scores the post and returns true when this call banned the member.
// An unknown member resolves to false with no side effects. The updated
// score and timestamp are persisted before the threshold check, so even a
// failed ban write leaves the score on record.
func (s *AutobanService) Check(ctx context.Context, memberID uint, body string) (bool, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
			return false, nil
		}
		return false, err
	}

	nowMs := s.now().UnixMilli()
	score := member.AutobanScore

	// Cadence penalties only apply once the member has posted before;
	// a zero last-post timestamp means no history.
	if member.AutobanLastPost > 0 {
		sinceLast := time.Duration(nowMs-member.AutobanLastPost) * time.Millisecond
		if sinceLast < fastPostWindow {
			score += fastPostPenalty
			observability.AutobanScoreHits.WithLabelValues("fast_post").Inc()
		}
		if sinceLast < veryFastPostWindow {
			score += veryFastPostPenalty
			observability.AutobanScoreHits.WithLabelValues("very_fast_post").Inc()
		}
	}

	lower := strings.ToLower(body)
	if containsAny(lower, spamKeywords) {
		score += spamContentPenalty
		observability.AutobanScoreHits.WithLabelValues("spam_keyword").Inc()
	}
	if containsAny(lower, suspiciousDomains) {
		score += spamContentPenalty
		observability.AutobanScoreHits.WithLabelValues("suspicious_domain").Inc()
	}

	if err := s.memberRepo.SetAutobanState(ctx, memberID, score, nowMs); err != nil {
		return false, err
	}

	if score < autobanThreshold || member.Banned {
		return false, nil
	}

	// System-initiated ban: banned_by stays NULL.
	if err := s.memberRepo.Ban(ctx, memberID, autobanReason, nil); err != nil {
		return false, err
	}

	observability.AutobansTriggered.Inc()
	s.logger.WarnContext(ctx, "member auto-banned",
		slog.Uint64("member_id", uint64(memberID)),
		slog.Int("score", score),
	)
	return true, nil
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
