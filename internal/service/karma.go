package service

import (
	"context"
	"log/slog"

	"steeple/internal/models"
	"steeple/internal/observability"
	"steeple/internal/repository"
)

// KarmaService applies bounded karma adjustments. Callers treat it as
// fire-and-forget bookkeeping: no return value is inspected and errors are
// logged, never propagated to the primary action.
type KarmaService struct {
	memberRepo repository.MemberRepository
	karmaRepo  repository.KarmaRepository
	logger     *slog.Logger
}

// NewKarmaService returns a new KarmaService.
func NewKarmaService(memberRepo repository.MemberRepository, karmaRepo repository.KarmaRepository, logger *slog.Logger) *KarmaService {
	return &KarmaService{memberRepo: memberRepo, karmaRepo: karmaRepo, logger: logger}
}

// BumpMember adjusts the member's global karma counters. Deltas may be
// negative (content removal); the SQL clamps each counter at zero.
func (s *KarmaService) BumpMember(ctx context.Context, memberID uint, delta models.KarmaDelta) {
	if delta.IsZero() {
		return
	}
	if err := s.memberRepo.BumpKarma(ctx, memberID, delta); err != nil {
		observability.SideEffectErrors.WithLabelValues("karma").Inc()
		s.logger.WarnContext(ctx, "member karma bump failed",
			slog.Uint64("member_id", uint64(memberID)),
			slog.String("error", err.Error()),
		)
	}
}

// BumpCommunity adjusts the member's per-community counters, creating the
// accumulator row on first use.
func (s *KarmaService) BumpCommunity(ctx context.Context, communityID, memberID uint, delta models.KarmaDelta) {
	if delta.IsZero() {
		return
	}
	if err := s.karmaRepo.UpsertCommunityDelta(ctx, communityID, memberID, delta); err != nil {
		observability.SideEffectErrors.WithLabelValues("karma").Inc()
		s.logger.WarnContext(ctx, "community karma bump failed",
			slog.Uint64("community_id", uint64(communityID)),
			slog.Uint64("member_id", uint64(memberID)),
			slog.String("error", err.Error()),
		)
	}
}
