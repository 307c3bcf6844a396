package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steeple/internal/config"
	"steeple/internal/models"
	"steeple/internal/service"
)

// Redis-less wiring is a supported deployment mode; notification side
// effects must still write rows instead of tearing down the process.
func TestNewServerWithDeps_WithoutRedis(t *testing.T) {
	db := newTestDB(t)
	cfg := &config.Config{JWTSecret: "test_secret", Env: "test"}

	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	require.NotNil(t, s.notifier)
	require.Nil(t, s.hub)

	ctx := context.Background()
	member := createMember(t, s, "offline_member", "offline@example.com", "Password123!", nil)

	s.notificationService.CreateAdmin(ctx, service.CreateAdminNotificationInput{
		Type:    "member_autobanned",
		Message: "Spam score threshold exceeded",
	})
	s.notificationService.CreateMember(ctx, service.CreateMemberNotificationInput{
		MemberID: member.ID,
		Category: models.NotifCategoryForum,
		Type:     "thread_reply",
		Message:  "New reply in your thread",
	})

	var admins, members int64
	require.NoError(t, db.Model(&models.AdminNotification{}).Count(&admins).Error)
	require.NoError(t, db.Model(&models.MemberNotification{}).Count(&members).Error)
	assert.EqualValues(t, 1, admins)
	assert.EqualValues(t, 1, members)
}
