package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"steeple/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberToken(t *testing.T, s *Server, member *models.Member) string {
	t.Helper()
	token, err := s.generateToken(member.ID, member.Username)
	require.NoError(t, err)
	return token
}

func createCommunity(t *testing.T, s *Server, name string) *models.Community {
	t.Helper()
	community := &models.Community{Name: name}
	require.NoError(t, s.db.Create(community).Error)
	return community
}

func TestCreateThread(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "thread_author", "author@example.com", "Password123!", nil)
	community := createCommunity(t, s, "General")
	token := memberToken(t, s, member)

	resp := postJSON(t, app, "/api/communities/1/threads", map[string]string{
		"title": "Welcome potluck",
		"body":  "Who's bringing what on Sunday?",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Welcome potluck", body["title"])

	var count int64
	require.NoError(t, s.db.Model(&models.ForumThread{}).
		Where("community_id = ?", community.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Karma and badge grants run detached from the request.
	require.Eventually(t, func() bool {
		var m models.Member
		if err := s.db.First(&m, member.ID).Error; err != nil {
			return false
		}
		return m.PostKarma == 5 && m.TotalKarma == 5
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		var badges int64
		s.db.Model(&models.MemberBadge{}).Where("member_id = ?", member.ID).Count(&badges)
		return badges == 0 // no badge definitions seeded, grant is a no-op
	}, time.Second, 10*time.Millisecond)
}

func TestCreateThread_SpamBodyBansMember(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "spam_poster", "spam@example.com", "Password123!", nil)
	createCommunity(t, s, "General")
	token := memberToken(t, s, member)

	resp := postJSON(t, app, "/api/communities/1/threads", map[string]string{
		"title": "Great opportunity",
		"body":  "Free bitcoin airdrop at bit.ly/xyz, act now!",
	}, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	var m models.Member
	require.NoError(t, s.db.First(&m, member.ID).Error)
	assert.True(t, m.Banned)
	assert.Nil(t, m.BannedBy)
	assert.GreaterOrEqual(t, m.AutobanScore, 5)

	var count int64
	require.NoError(t, s.db.Model(&models.ForumThread{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateThread_BannedMemberRejected(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "banned_poster", "bp@example.com", "Password123!", func(m *models.Member) {
		m.Banned = true
		m.BannedReason = "manual ban"
	})
	createCommunity(t, s, "General")
	token := memberToken(t, s, member)

	resp := postJSON(t, app, "/api/communities/1/threads", map[string]string{
		"title": "Hello",
		"body":  "A perfectly normal post",
	}, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	var count int64
	require.NoError(t, s.db.Model(&models.ForumThread{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateThread_UnknownCommunity(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "lost_poster", "lost@example.com", "Password123!", nil)
	token := memberToken(t, s, member)

	resp := postJSON(t, app, "/api/communities/99/threads", map[string]string{
		"title": "Hello",
		"body":  "Anyone here?",
	}, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCreateReply_NotifiesThreadAuthor(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	author := createMember(t, s, "orig_author", "oa@example.com", "Password123!", nil)
	replier := createMember(t, s, "replier", "rp@example.com", "Password123!", nil)
	community := createCommunity(t, s, "Prayer Requests")

	thread := &models.ForumThread{
		CommunityID: community.ID,
		MemberID:    author.ID,
		Title:       "Pray for my family",
		Body:        "Hard week.",
	}
	require.NoError(t, s.db.Create(thread).Error)

	resp := postJSON(t, app, "/api/threads/1/replies", map[string]string{
		"body": "Praying for you!",
	}, memberToken(t, s, replier))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	require.Eventually(t, func() bool {
		var notifs []models.MemberNotification
		if err := s.db.Where("member_id = ?", author.ID).Find(&notifs).Error; err != nil {
			return false
		}
		return len(notifs) == 1 && notifs[0].Type == "thread_reply"
	}, 2*time.Second, 10*time.Millisecond)

	// Reply karma lands on the replier.
	require.Eventually(t, func() bool {
		var m models.Member
		if err := s.db.First(&m, replier.ID).Error; err != nil {
			return false
		}
		return m.ReplyKarma == 2 && m.TotalKarma == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateReply_SelfReplyDoesNotNotify(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	author := createMember(t, s, "self_replier", "sr@example.com", "Password123!", nil)
	community := createCommunity(t, s, "General")

	thread := &models.ForumThread{
		CommunityID: community.ID,
		MemberID:    author.ID,
		Title:       "Bump",
		Body:        "First!",
	}
	require.NoError(t, s.db.Create(thread).Error)

	resp := postJSON(t, app, "/api/threads/1/replies", map[string]string{
		"body": "Also first!",
	}, memberToken(t, s, author))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// Wait for the detached karma write, then confirm no notification row.
	require.Eventually(t, func() bool {
		var m models.Member
		if err := s.db.First(&m, author.ID).Error; err != nil {
			return false
		}
		return m.ReplyKarma == 2
	}, 2*time.Second, 10*time.Millisecond)

	var count int64
	require.NoError(t, s.db.Model(&models.MemberNotification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateReply_DisabledSettingSuppressesNotification(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	author := createMember(t, s, "quiet_author", "qa@example.com", "Password123!", nil)
	replier := createMember(t, s, "loud_replier", "lr@example.com", "Password123!", nil)
	community := createCommunity(t, s, "General")

	require.NoError(t, s.db.Create(&models.NotificationSetting{
		MemberID: author.ID,
		Type:     "thread_reply",
		Enabled:  false,
	}).Error)

	thread := &models.ForumThread{
		CommunityID: community.ID,
		MemberID:    author.ID,
		Title:       "Quiet please",
		Body:        "No pings.",
	}
	require.NoError(t, s.db.Create(thread).Error)

	resp := postJSON(t, app, "/api/threads/1/replies", map[string]string{
		"body": "Replying anyway",
	}, memberToken(t, s, replier))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// Karma settling means the side-effect goroutine has finished.
	require.Eventually(t, func() bool {
		var m models.Member
		if err := s.db.First(&m, replier.ID).Error; err != nil {
			return false
		}
		return m.ReplyKarma == 2
	}, 2*time.Second, 10*time.Millisecond)

	var count int64
	require.NoError(t, s.db.Model(&models.MemberNotification{}).
		Where("member_id = ?", author.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetThreads_Pagination(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "lister", "lister@example.com", "Password123!", nil)
	community := createCommunity(t, s, "General")
	for i := 0; i < 3; i++ {
		require.NoError(t, s.db.Create(&models.ForumThread{
			CommunityID: community.ID,
			MemberID:    member.ID,
			Title:       "Thread",
			Body:        "Body",
		}).Error)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/communities/1/threads?limit=2", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	threads, ok := body["threads"].([]any)
	require.True(t, ok)
	assert.Len(t, threads, 2)
}

func TestGetCommunityLeaderboard(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	community := createCommunity(t, s, "General")
	require.NoError(t, s.db.Create(&models.CommunityKarma{
		CommunityID: community.ID, MemberID: 1, TotalKarma: 50,
	}).Error)
	require.NoError(t, s.db.Create(&models.CommunityKarma{
		CommunityID: community.ID, MemberID: 2, TotalKarma: 80,
	}).Error)

	req := httptest.NewRequest(http.MethodGet, "/api/communities/1/leaderboard", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	rows, ok := body["leaderboard"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)

	first, ok := rows[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), first["member_id"])
}
