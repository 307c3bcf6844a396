package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steeple/internal/models"
)

func TestAwardIfEligible_MissingBadgeIsNoOp(t *testing.T) {
	t.Parallel()

	badgeRepo := &stubBadgeRepo{badges: map[string]*models.Badge{}}
	svc := NewBadgeService(badgeRepo, &stubForumRepo{}, testLogger())

	granted, err := svc.AwardIfEligible(context.Background(), 1, "nonexistent")
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Empty(t, badgeRepo.grantCalls)
}

func TestAwardIfEligible_GrantIsIdempotent(t *testing.T) {
	t.Parallel()

	badgeRepo := &stubBadgeRepo{
		badges: map[string]*models.Badge{
			models.BadgeKeyFirstThread: {ID: 10, BadgeKey: models.BadgeKeyFirstThread, IsActive: true},
		},
	}
	svc := NewBadgeService(badgeRepo, &stubForumRepo{}, testLogger())

	granted, err := svc.AwardIfEligible(context.Background(), 1, models.BadgeKeyFirstThread)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = svc.AwardIfEligible(context.Background(), 1, models.BadgeKeyFirstThread)
	require.NoError(t, err)
	assert.False(t, granted, "second call must not be a fresh grant")
}

func TestEvaluateAutoBadges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		threads  int64
		replies  int64
		expected []string
	}{
		{"no activity", 0, 0, nil},
		{"first thread", 1, 0, []string{models.BadgeKeyFirstThread}},
		{"reply milestone", 0, 20, []string{models.BadgeKeyActiveMember}},
		{"thread milestone grants both", 5, 0, []string{models.BadgeKeyFirstThread, models.BadgeKeyActiveMember}},
		{"just under reply milestone", 0, 19, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			badgeRepo := &stubBadgeRepo{
				badges: map[string]*models.Badge{
					models.BadgeKeyFirstThread:  {ID: 1, BadgeKey: models.BadgeKeyFirstThread, IsActive: true},
					models.BadgeKeyActiveMember: {ID: 2, BadgeKey: models.BadgeKeyActiveMember, IsActive: true},
				},
			}
			forumRepo := &stubForumRepo{threadCount: tt.threads, replyCount: tt.replies}
			svc := NewBadgeService(badgeRepo, forumRepo, testLogger())

			svc.EvaluateAutoBadges(context.Background(), 1)

			var grantedKeys []string
			for _, call := range badgeRepo.grantCalls {
				for key, b := range badgeRepo.badges {
					if b.ID == call.badgeID {
						grantedKeys = append(grantedKeys, key)
					}
				}
			}
			assert.ElementsMatch(t, tt.expected, grantedKeys)
		})
	}
}

func TestEvaluateAutoBadges_CountErrorSwallowed(t *testing.T) {
	t.Parallel()

	badgeRepo := &stubBadgeRepo{badges: map[string]*models.Badge{}}
	forumRepo := &stubForumRepo{countErr: assert.AnError}
	svc := NewBadgeService(badgeRepo, forumRepo, testLogger())

	// Must not panic or grant anything.
	svc.EvaluateAutoBadges(context.Background(), 1)
	assert.Empty(t, badgeRepo.grantCalls)
}
