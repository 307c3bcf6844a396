package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"steeple/internal/models"
	"steeple/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Test stubs embed the repository interface so each test overrides only
// the methods it exercises; an unexpected call panics with a nil method.

type stubMemberRepo struct {
	repository.MemberRepository

	members map[uint]*models.Member

	setStateCalls []autobanState
	banCalls      []banCall
	karmaCalls    []memberKarmaCall

	setStateErr error
	banErr      error
	karmaErr    error
}

type autobanState struct {
	memberID uint
	score    int
	lastPost int64
}

type banCall struct {
	memberID uint
	reason   string
	bannedBy *uint
}

type memberKarmaCall struct {
	memberID uint
	delta    models.KarmaDelta
}

func (s *stubMemberRepo) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, models.NewNotFoundError("Member", id)
	}
	copied := *m
	return &copied, nil
}

func (s *stubMemberRepo) SetAutobanState(ctx context.Context, id uint, score int, lastPost int64) error {
	if s.setStateErr != nil {
		return s.setStateErr
	}
	s.setStateCalls = append(s.setStateCalls, autobanState{memberID: id, score: score, lastPost: lastPost})
	return nil
}

func (s *stubMemberRepo) Ban(ctx context.Context, id uint, reason string, bannedBy *uint) error {
	if s.banErr != nil {
		return s.banErr
	}
	s.banCalls = append(s.banCalls, banCall{memberID: id, reason: reason, bannedBy: bannedBy})
	return nil
}

func (s *stubMemberRepo) BumpKarma(ctx context.Context, id uint, delta models.KarmaDelta) error {
	if s.karmaErr != nil {
		return s.karmaErr
	}
	s.karmaCalls = append(s.karmaCalls, memberKarmaCall{memberID: id, delta: delta})
	return nil
}

type stubBadgeRepo struct {
	repository.BadgeRepository

	badges map[string]*models.Badge
	held   map[uint]map[uint]bool // memberID -> badgeID -> held

	grantCalls []grantCall
	lookupErr  error
	grantErr   error
}

type grantCall struct {
	memberID uint
	badgeID  uint
}

func (s *stubBadgeRepo) GetActiveByKey(ctx context.Context, badgeKey string) (*models.Badge, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.badges[badgeKey], nil
}

func (s *stubBadgeRepo) Grant(ctx context.Context, memberID, badgeID uint) (bool, error) {
	if s.grantErr != nil {
		return false, s.grantErr
	}
	s.grantCalls = append(s.grantCalls, grantCall{memberID: memberID, badgeID: badgeID})
	if s.held == nil {
		s.held = map[uint]map[uint]bool{}
	}
	if s.held[memberID] == nil {
		s.held[memberID] = map[uint]bool{}
	}
	if s.held[memberID][badgeID] {
		return false, nil
	}
	s.held[memberID][badgeID] = true
	return true, nil
}

type stubForumRepo struct {
	repository.ForumRepository

	threadCount int64
	replyCount  int64
	countErr    error
}

func (s *stubForumRepo) CountThreadsByMember(ctx context.Context, memberID uint) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.threadCount, nil
}

func (s *stubForumRepo) CountRepliesByMember(ctx context.Context, memberID uint) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.replyCount, nil
}

type stubKarmaRepo struct {
	repository.KarmaRepository

	upsertCalls []communityKarmaCall
	upsertErr   error
}

type communityKarmaCall struct {
	communityID uint
	memberID    uint
	delta       models.KarmaDelta
}

func (s *stubKarmaRepo) UpsertCommunityDelta(ctx context.Context, communityID, memberID uint, delta models.KarmaDelta) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upsertCalls = append(s.upsertCalls, communityKarmaCall{communityID: communityID, memberID: memberID, delta: delta})
	return nil
}

type stubNotificationRepo struct {
	repository.NotificationRepository

	settings map[uint]map[string]*models.NotificationSetting

	adminRows  []*models.AdminNotification
	memberRows []*models.MemberNotification

	settingErr error
	insertErr  error
}

func (s *stubNotificationRepo) GetSetting(ctx context.Context, memberID uint, notifType string) (*models.NotificationSetting, error) {
	if s.settingErr != nil {
		return nil, s.settingErr
	}
	return s.settings[memberID][notifType], nil
}

func (s *stubNotificationRepo) CreateAdmin(ctx context.Context, n *models.AdminNotification) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	n.ID = uint(len(s.adminRows) + 1)
	s.adminRows = append(s.adminRows, n)
	return nil
}

func (s *stubNotificationRepo) CreateMember(ctx context.Context, n *models.MemberNotification) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	n.ID = uint(len(s.memberRows) + 1)
	s.memberRows = append(s.memberRows, n)
	return nil
}

type recordedPublish struct {
	memberID uint // zero for admin channel
	payload  string
}

type stubBroadcaster struct {
	published  []recordedPublish
	publishErr error
}

func (s *stubBroadcaster) PublishMember(ctx context.Context, memberID uint, payload string) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, recordedPublish{memberID: memberID, payload: payload})
	return nil
}

func (s *stubBroadcaster) PublishAdmin(ctx context.Context, payload string) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, recordedPublish{payload: payload})
	return nil
}

type stubAutomationRepo struct {
	repository.AutomationRepository

	sequences map[string][]models.AutomationSequence
	steps     map[uint][]models.AutomationStep

	enqueued   []models.AutomationQueueEntry
	due        []models.AutomationQueueEntry
	sentIDs    []uint
	failedIDs  []uint
	failReason map[uint]string

	enqueueErrFor map[uint]error // by sequence ID
	dueErr        error
}

func (s *stubAutomationRepo) ActiveSequencesByTrigger(ctx context.Context, triggerType string) ([]models.AutomationSequence, error) {
	return s.sequences[triggerType], nil
}

func (s *stubAutomationRepo) StepsForSequence(ctx context.Context, sequenceID uint) ([]models.AutomationStep, error) {
	return s.steps[sequenceID], nil
}

func (s *stubAutomationRepo) Enqueue(ctx context.Context, entries []models.AutomationQueueEntry) error {
	if len(entries) > 0 {
		if err := s.enqueueErrFor[entries[0].SequenceID]; err != nil {
			return err
		}
	}
	s.enqueued = append(s.enqueued, entries...)
	return nil
}

func (s *stubAutomationRepo) DueEntries(ctx context.Context, now time.Time, limit int) ([]models.AutomationQueueEntry, error) {
	if s.dueErr != nil {
		return nil, s.dueErr
	}
	return s.due, nil
}

func (s *stubAutomationRepo) GetStep(ctx context.Context, stepID uint) (*models.AutomationStep, error) {
	for _, steps := range s.steps {
		for _, st := range steps {
			if st.ID == stepID {
				copied := st
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (s *stubAutomationRepo) MarkSent(ctx context.Context, entryID uint) error {
	s.sentIDs = append(s.sentIDs, entryID)
	return nil
}

func (s *stubAutomationRepo) MarkFailed(ctx context.Context, entryID uint, reason string) error {
	s.failedIDs = append(s.failedIDs, entryID)
	if s.failReason == nil {
		s.failReason = map[uint]string{}
	}
	s.failReason[entryID] = reason
	return nil
}

type stubEmailSender struct {
	sent    []uint // entry IDs
	failFor map[uint]error
}

func (s *stubEmailSender) Send(ctx context.Context, entry models.AutomationQueueEntry, step models.AutomationStep) error {
	if err := s.failFor[entry.ID]; err != nil {
		return err
	}
	s.sent = append(s.sent, entry.ID)
	return nil
}
