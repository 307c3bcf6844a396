// Package seed provides helpers to create demo data for development and
// testing. Nothing here should run against a production database.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"steeple/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumMembers  int
	NumThreads  int
	MaxDays     int
	ShouldClean bool
}

// Factory builds domain entities and persists them. It is a thin helper
// used by the seeder and by tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed))}
}

// backdate returns a time spread over the configured window so feeds and
// dashboards look lived-in instead of created-all-at-once.
func (f *Factory) backdate() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	return time.Now().
		Add(-time.Duration(f.rng.Intn(maxDays)) * 24 * time.Hour).
		Add(-time.Duration(f.rng.Intn(24)) * time.Hour).
		Add(-time.Duration(f.rng.Intn(60)) * time.Minute)
}

// CreateMember persists a member with a deterministic password ("password")
// so seeded accounts can be logged into during development.
func (f *Factory) CreateMember(overrides ...func(*models.Member)) (*models.Member, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	username := strings.ToLower(gofakeit.Username())
	if len(username) < 3 {
		username = username + fmt.Sprintf("%03d", f.rng.Intn(1000))
	}
	member := &models.Member{
		Username:  username,
		Email:     gofakeit.Email(),
		Password:  string(hashed),
		Role:      models.RoleMember,
		CreatedAt: f.backdate(),
	}
	for _, override := range overrides {
		override(member)
	}
	if err := f.db.Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// CreateCommunity persists a community with the given name.
func (f *Factory) CreateCommunity(name string) (*models.Community, error) {
	community := &models.Community{
		Name:        name,
		Description: gofakeit.Sentence(8),
	}
	if err := f.db.Create(community).Error; err != nil {
		return nil, err
	}
	return community, nil
}

// CreateThread persists a thread by the given member in the community.
func (f *Factory) CreateThread(member *models.Member, community *models.Community) (*models.ForumThread, error) {
	thread := &models.ForumThread{
		CommunityID: community.ID,
		MemberID:    member.ID,
		Title:       gofakeit.Sentence(5),
		Body:        gofakeit.Paragraph(1, 3, 8, "\n"),
		CreatedAt:   f.backdate(),
	}
	if err := f.db.Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

// CreateReply persists a reply by the given member to the thread.
func (f *Factory) CreateReply(member *models.Member, thread *models.ForumThread) (*models.ForumReply, error) {
	reply := &models.ForumReply{
		ThreadID:  thread.ID,
		MemberID:  member.ID,
		Body:      gofakeit.Paragraph(1, 2, 6, "\n"),
		CreatedAt: f.backdate(),
	}
	if err := f.db.Create(reply).Error; err != nil {
		return nil, err
	}
	return reply, nil
}

// CreateEvent persists an upcoming event.
func (f *Factory) CreateEvent(overrides ...func(*models.Event)) (*models.Event, error) {
	starts := time.Now().Add(time.Duration(1+f.rng.Intn(45)) * 24 * time.Hour)
	ends := starts.Add(2 * time.Hour)
	event := &models.Event{
		Title:       gofakeit.Sentence(3),
		Description: gofakeit.Paragraph(1, 2, 6, "\n"),
		Location:    gofakeit.City(),
		StartsAt:    starts,
		EndsAt:      &ends,
		Capacity:    f.rng.Intn(5) * 25, // 0 means unlimited
	}
	for _, override := range overrides {
		override(event)
	}
	if err := f.db.Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// CreateDonation persists a confirmed donation for the member.
func (f *Factory) CreateDonation(member *models.Member) (*models.Donation, error) {
	memberID := member.ID
	donation := &models.Donation{
		MemberID:    &memberID,
		DonorEmail:  member.Email,
		AmountCents: int64(500 + f.rng.Intn(100)*100),
		Currency:    "USD",
		Fund:        []string{"general", "missions", "building"}[f.rng.Intn(3)],
		Recurring:   f.rng.Intn(4) == 0,
		ExternalRef: "ch_" + gofakeit.UUID(),
		CreatedAt:   f.backdate(),
	}
	if err := f.db.Create(donation).Error; err != nil {
		return nil, err
	}
	return donation, nil
}

// CreateBadge persists a badge definition.
func (f *Factory) CreateBadge(name, key string) (*models.Badge, error) {
	badge := &models.Badge{
		Name:     name,
		BadgeKey: key,
		IsActive: true,
		IconURL:  fmt.Sprintf("https://badges.example.com/%s.svg", key),
	}
	if err := f.db.Create(badge).Error; err != nil {
		return nil, err
	}
	return badge, nil
}

// CreateSequence persists an automation sequence with a simple step ladder:
// day 0, day 3, day 7.
func (f *Factory) CreateSequence(name, trigger string) (*models.AutomationSequence, error) {
	seq := &models.AutomationSequence{
		Name:        name,
		TriggerType: trigger,
		IsActive:    true,
	}
	if err := f.db.Create(seq).Error; err != nil {
		return nil, err
	}
	for i, delay := range []int{0, 3, 7} {
		step := &models.AutomationStep{
			SequenceID: seq.ID,
			StepOrder:  i + 1,
			DelayDays:  delay,
			Subject:    fmt.Sprintf("%s — step %d", name, i+1),
			Template:   fmt.Sprintf("%s_step_%d", strings.ReplaceAll(strings.ToLower(name), " ", "_"), i+1),
		}
		if err := f.db.Create(step).Error; err != nil {
			return nil, err
		}
	}
	return seq, nil
}
