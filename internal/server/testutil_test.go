package server

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"steeple/internal/config"
	"steeple/internal/database"
	"steeple/internal/middleware"
	"steeple/internal/repository"
	"steeple/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A second pooled connection would see its own empty :memory: database.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// newTestServer wires a Server over in-memory sqlite and miniredis. The
// prometheus middleware is left nil so repeated tests don't collide on
// collector registration.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	db := newTestDB(t)
	rdb := newTestRedis(t)

	s := &Server{
		config:       &config.Config{JWTSecret: "test_secret", Env: "test"},
		db:           db,
		redis:        rdb,
		memberRepo:   repository.NewMemberRepository(db),
		badgeRepo:    repository.NewBadgeRepository(db),
		karmaRepo:    repository.NewKarmaRepository(db),
		forumRepo:    repository.NewForumRepository(db),
		notifRepo:    repository.NewNotificationRepository(db),
		autoRepo:     repository.NewAutomationRepository(db),
		eventRepo:    repository.NewEventRepository(db),
		donationRepo: repository.NewDonationRepository(db),
	}

	logger := middleware.Logger
	s.badgeService = service.NewBadgeService(s.badgeRepo, s.forumRepo, logger)
	s.karmaService = service.NewKarmaService(s.memberRepo, s.karmaRepo, logger)
	s.autobanService = service.NewAutobanService(s.memberRepo, logger)
	s.notificationService = service.NewNotificationService(s.notifRepo, nil, logger)
	s.automationService = service.NewAutomationService(s.autoRepo, nil, logger)
	return s
}

func parseClaims(t *testing.T, s *Server, tokenString string) jwt.MapClaims {
	t.Helper()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("parse token: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("unexpected claims type")
	}
	return claims
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}
