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

func TestRecordDonation(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "donor", "donor@example.com", "Password123!", nil)
	token := memberToken(t, s, member)

	// First-gift and repeat-gift sequences, one step each.
	firstSeq := &models.AutomationSequence{Name: "First gift thanks", TriggerType: models.TriggerFirstDonation, IsActive: true}
	require.NoError(t, s.db.Create(firstSeq).Error)
	require.NoError(t, s.db.Create(&models.AutomationStep{
		SequenceID: firstSeq.ID, StepOrder: 1, Subject: "Thank you!",
	}).Error)
	repeatSeq := &models.AutomationSequence{Name: "Gift receipt", TriggerType: models.TriggerDonation, IsActive: true}
	require.NoError(t, s.db.Create(repeatSeq).Error)
	require.NoError(t, s.db.Create(&models.AutomationStep{
		SequenceID: repeatSeq.ID, StepOrder: 1, Subject: "Receipt",
	}).Error)

	resp := postJSON(t, app, "/api/donations", map[string]any{
		"amount_cents": 5000,
		"external_ref": "ch_first",
		"fund":         "general",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(5000), body["amount_cents"])
	assert.Equal(t, "USD", body["currency"])

	// First gift fires the first-donation sequence, not the repeat one.
	require.Eventually(t, func() bool {
		var entries []models.AutomationQueueEntry
		if err := s.db.Find(&entries).Error; err != nil {
			return false
		}
		return len(entries) == 1 && entries[0].SequenceID == firstSeq.ID
	}, 2*time.Second, 10*time.Millisecond)

	// Admins are told about the gift.
	require.Eventually(t, func() bool {
		var notifs int64
		s.db.Model(&models.AdminNotification{}).Where("type = ?", "new_donation").Count(&notifs)
		return notifs == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Second gift routes to the repeat sequence.
	resp = postJSON(t, app, "/api/donations", map[string]any{
		"amount_cents": 2500,
		"external_ref": "ch_second",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	require.Eventually(t, func() bool {
		var entries int64
		s.db.Model(&models.AutomationQueueEntry{}).
			Where("sequence_id = ?", repeatSeq.ID).Count(&entries)
		return entries == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecordDonation_Validation(t *testing.T) {
	s := newTestServer(t)
	app := fiber.New()
	s.SetupRoutes(app)

	member := createMember(t, s, "bad_donor", "baddonor@example.com", "Password123!", nil)
	token := memberToken(t, s, member)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"Zero amount", map[string]any{"amount_cents": 0, "external_ref": "ch_x"}},
		{"Negative amount", map[string]any{"amount_cents": -100, "external_ref": "ch_x"}},
		{"Missing reference", map[string]any{"amount_cents": 100}},
		{"Bad currency", map[string]any{"amount_cents": 100, "external_ref": "ch_x", "currency": "DOLLARS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, "/api/donations", tt.payload, token)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			_ = resp.Body.Close()
		})
	}

	var count int64
	require.NoError(t, s.db.Model(&models.Donation{}).Count(&count).Error)
	assert.Zero(t, count)
}
