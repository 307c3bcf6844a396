package seed

import (
	"fmt"
	"log"

	"steeple/internal/models"

	"gorm.io/gorm"
)

var communityNames = []string{
	"General", "Prayer Requests", "Youth Ministry", "Worship Team",
	"Small Groups", "Missions", "Volunteers", "Parents", "Men's Group",
	"Women's Group", "Bible Study", "Newcomers",
}

// Seeder populates the database with realistic demo data.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a Seeder bound to the given DB.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes all seeded rows. Order matters for foreign keys.
func (s *Seeder) ClearAll() error {
	tables := []any{
		&models.AutomationQueueEntry{},
		&models.AutomationStep{},
		&models.AutomationSequence{},
		&models.MemberNotification{},
		&models.AdminNotification{},
		&models.NotificationSetting{},
		&models.Donation{},
		&models.EventRSVP{},
		&models.Event{},
		&models.MemberBadge{},
		&models.Badge{},
		&models.CommunityKarma{},
		&models.ForumReply{},
		&models.ForumThread{},
		&models.Community{},
		&models.Member{},
	}
	for _, table := range tables {
		if err := s.db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("clearing %T: %w", table, err)
		}
	}
	log.Println("Database cleared")
	return nil
}

// Run seeds members, communities, forum activity, events, donations, badges
// and automation sequences according to opts.
func (s *Seeder) Run(opts Options) error {
	f := NewFactory(s.db, opts)

	numMembers := opts.NumMembers
	if numMembers <= 0 {
		numMembers = 50
	}
	numThreads := opts.NumThreads
	if numThreads <= 0 {
		numThreads = 200
	}

	// One known admin account for local development.
	admin, err := f.CreateMember(func(m *models.Member) {
		m.Username = "admin"
		m.Email = "admin@steeple.local"
		m.Role = models.RoleAdmin
	})
	if err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}
	log.Printf("Admin account: %s (password: password)", admin.Email)

	members := make([]*models.Member, 0, numMembers)
	for i := 0; i < numMembers; i++ {
		member, err := f.CreateMember()
		if err != nil {
			return fmt.Errorf("creating member %d: %w", i, err)
		}
		members = append(members, member)
	}

	communities := make([]*models.Community, 0, len(communityNames))
	for _, name := range communityNames {
		community, err := f.CreateCommunity(name)
		if err != nil {
			return fmt.Errorf("creating community %q: %w", name, err)
		}
		communities = append(communities, community)
	}

	threads := make([]*models.ForumThread, 0, numThreads)
	for i := 0; i < numThreads; i++ {
		member := members[f.rng.Intn(len(members))]
		community := communities[f.rng.Intn(len(communities))]
		thread, err := f.CreateThread(member, community)
		if err != nil {
			return fmt.Errorf("creating thread %d: %w", i, err)
		}
		threads = append(threads, thread)

		// 0-5 replies per thread
		for j := 0; j < f.rng.Intn(6); j++ {
			replier := members[f.rng.Intn(len(members))]
			if _, err := f.CreateReply(replier, thread); err != nil {
				return fmt.Errorf("creating reply: %w", err)
			}
		}
	}

	for i := 0; i < 6; i++ {
		event, err := f.CreateEvent()
		if err != nil {
			return fmt.Errorf("creating event: %w", err)
		}
		// Roughly a third of members RSVP to each event.
		for _, member := range members {
			if f.rng.Intn(3) != 0 {
				continue
			}
			rsvp := &models.EventRSVP{
				EventID:  event.ID,
				MemberID: member.ID,
				Status:   []string{models.RSVPStatusGoing, models.RSVPStatusMaybe}[f.rng.Intn(2)],
			}
			if err := s.db.Create(rsvp).Error; err != nil {
				return fmt.Errorf("creating rsvp: %w", err)
			}
		}
	}

	for _, member := range members {
		if f.rng.Intn(4) != 0 {
			continue
		}
		if _, err := f.CreateDonation(member); err != nil {
			return fmt.Errorf("creating donation: %w", err)
		}
	}

	for _, badge := range []struct{ name, key string }{
		{"First Thread", "first_thread"},
		{"Active Member", "active_member"},
		{"Volunteer", "volunteer"},
	} {
		if _, err := f.CreateBadge(badge.name, badge.key); err != nil {
			return fmt.Errorf("creating badge %q: %w", badge.key, err)
		}
	}

	for _, seq := range []struct{ name, trigger string }{
		{"Welcome Series", models.TriggerMemberSignup},
		{"First Gift Thanks", models.TriggerFirstDonation},
		{"Event Follow-up", models.TriggerEventRSVP},
	} {
		if _, err := f.CreateSequence(seq.name, seq.trigger); err != nil {
			return fmt.Errorf("creating sequence %q: %w", seq.name, err)
		}
	}

	log.Printf("Seeded %d members, %d communities, %d threads", len(members)+1, len(communities), len(threads))
	return nil
}
