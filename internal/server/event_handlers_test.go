package server

import (
	"net/http"
	"testing"
	"time"

	"steeple/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createEvent(t *testing.T, s *Server, title string, capacity int) *models.Event {
	t.Helper()
	event := &models.Event{
		Title:    title,
		StartsAt: time.Now().Add(48 * time.Hour),
		Capacity: capacity,
	}
	require.NoError(t, s.db.Create(event).Error)
	return event
}

func TestRSVPEvent(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "rsvp_member", "rsvp@example.com", "Password123!", nil)
	createEvent(t, s, "Fall Retreat", 0)
	token := memberToken(t, s, member)

	// Sequence wired to the RSVP trigger.
	seq := &models.AutomationSequence{Name: "Retreat prep", TriggerType: models.TriggerEventRSVP, IsActive: true}
	require.NoError(t, s.db.Create(seq).Error)
	require.NoError(t, s.db.Create(&models.AutomationStep{
		SequenceID: seq.ID, StepOrder: 1, DelayDays: 1, Subject: "See you soon",
	}).Error)

	resp := postJSON(t, app, "/api/events/1/rsvp", map[string]any{
		"status": "going",
		"guests": 2,
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "going", body["status"])

	// Confirmation notification and automation enqueue run detached.
	require.Eventually(t, func() bool {
		var notifs int64
		s.db.Model(&models.MemberNotification{}).
			Where("member_id = ? AND type = ?", member.ID, "rsvp_confirmed").Count(&notifs)
		var queued int64
		s.db.Model(&models.AutomationQueueEntry{}).
			Where("member_id = ?", member.ID).Count(&queued)
		return notifs == 1 && queued == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Re-RSVP updates in place rather than duplicating.
	resp = postJSON(t, app, "/api/events/1/rsvp", map[string]any{"status": "maybe"}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	var rsvps []models.EventRSVP
	require.NoError(t, s.db.Where("event_id = ?", 1).Find(&rsvps).Error)
	require.Len(t, rsvps, 1)
	assert.Equal(t, "maybe", rsvps[0].Status)
}

func TestRSVPEvent_Validation(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "rsvp_bad", "rsvpbad@example.com", "Password123!", nil)
	createEvent(t, s, "Picnic", 0)
	token := memberToken(t, s, member)

	resp := postJSON(t, app, "/api/events/1/rsvp", map[string]any{"status": "perhaps"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postJSON(t, app, "/api/events/1/rsvp", map[string]any{"guests": -1}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postJSON(t, app, "/api/events/99/rsvp", map[string]any{"status": "going"}, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRSVPEvent_CapacityFull(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	first := createMember(t, s, "cap_first", "cap1@example.com", "Password123!", nil)
	second := createMember(t, s, "cap_second", "cap2@example.com", "Password123!", nil)
	createEvent(t, s, "Small Group", 1)

	resp := postJSON(t, app, "/api/events/1/rsvp", map[string]any{"status": "going"},
		memberToken(t, s, first))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postJSON(t, app, "/api/events/1/rsvp", map[string]any{"status": "going"},
		memberToken(t, s, second))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	// Declining is always allowed, even at capacity.
	resp = postJSON(t, app, "/api/events/1/rsvp", map[string]any{"status": "declined"},
		memberToken(t, s, second))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCreateEvent_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	admin := createAdmin(t, s, "event_admin", "eadmin@example.com")
	member := createMember(t, s, "event_member", "emember@example.com", "Password123!", nil)

	payload := map[string]any{
		"title":     "Christmas Service",
		"starts_at": time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
		"location":  "Main Hall",
	}

	resp := postJSON(t, app, "/api/admin/events", payload, memberToken(t, s, member))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postJSON(t, app, "/api/admin/events", payload, memberToken(t, s, admin))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// ends_at before starts_at is rejected.
	bad := map[string]any{
		"title":     "Time travel",
		"starts_at": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"ends_at":   time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}
	resp = postJSON(t, app, "/api/admin/events", bad, memberToken(t, s, admin))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
