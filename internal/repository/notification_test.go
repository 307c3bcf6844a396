package repository

import (
	"context"
	"testing"

	"steeple/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_GetSetting(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	// Absent row is not an error; callers treat nil as enabled.
	setting, err := repo.GetSetting(ctx, 1, "thread_reply")
	require.NoError(t, err)
	assert.Nil(t, setting)

	require.NoError(t, repo.UpsertSetting(ctx, &models.NotificationSetting{
		MemberID: 1, Type: "thread_reply", Enabled: false,
	}))

	setting, err = repo.GetSetting(ctx, 1, "thread_reply")
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.False(t, setting.Enabled)

	// Upsert flips the same row rather than stacking a second one.
	require.NoError(t, repo.UpsertSetting(ctx, &models.NotificationSetting{
		MemberID: 1, Type: "thread_reply", Enabled: true,
	}))

	var count int64
	require.NoError(t, db.Model(&models.NotificationSetting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	setting, err = repo.GetSetting(ctx, 1, "thread_reply")
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.True(t, setting.Enabled)
}

func TestNotificationRepository_CountUnread(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	for _, read := range []bool{false, false, true} {
		require.NoError(t, repo.CreateMember(ctx, &models.MemberNotification{
			MemberID: 1, Category: models.NotifCategoryForum, Type: "thread_reply",
			Message: "msg", Read: read,
		}))
	}
	require.NoError(t, repo.CreateMember(ctx, &models.MemberNotification{
		MemberID: 2, Category: models.NotifCategoryForum, Type: "thread_reply", Message: "msg",
	}))

	count, err := repo.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestNotificationRepository_ClearMemberScoped(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateMember(ctx, &models.MemberNotification{
		MemberID: 1, Type: "thread_reply", Message: "mine",
	}))
	require.NoError(t, repo.CreateMember(ctx, &models.MemberNotification{
		MemberID: 2, Type: "thread_reply", Message: "theirs",
	}))

	require.NoError(t, repo.ClearMember(ctx, 1))

	var count int64
	require.NoError(t, db.Model(&models.MemberNotification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var remaining models.MemberNotification
	require.NoError(t, db.First(&remaining).Error)
	assert.Equal(t, uint(2), remaining.MemberID)
}
