package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nexus/internal/avatar"
	"nexus/internal/bus"
	"nexus/internal/config"
	"nexus/internal/database"
	"nexus/internal/featureflags"
	"nexus/internal/models"
	"nexus/internal/realtime"
	"nexus/internal/repository"
	"nexus/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingPublisher captures every event a handler path publishes.
type recordingPublisher struct {
	mu     sync.Mutex
	events []bus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ bus.Topic, event bus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

// newTestServer wires a Server directly over in-memory sqlite. The metrics
// middleware is left nil so repeated construction never re-registers
// Prometheus collectors.
func newTestServer(t *testing.T) (*Server, *recordingPublisher) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.Models()...))

	cfg := &config.Config{
		JWTSecret:     "test-secret-test-secret-test-secret",
		Port:          "0",
		BaseURL:       "https://nexus.test",
		KafkaBrokers:  "localhost:9092",
		SweepInterval: time.Hour,
		Env:           "test",
	}

	repos := repository.NewRepos(db)
	uow := repository.NewUnitOfWork(db)
	perms := service.NewPermissionEvaluator(repos.Members)
	publisher := &recordingPublisher{}

	s := &Server{
		config:    cfg,
		db:        db,
		repos:     repos,
		uow:       uow,
		perms:     perms,
		publisher: publisher,
	}
	s.networkService = service.NewNetworkService(repos, uow, perms, publisher,
		avatar.NewIdenticonGenerator(), cfg.BaseURL)
	s.membershipService = service.NewMembershipService(repos, uow, perms, publisher)
	s.joinService = service.NewJoinService(repos, uow, perms, publisher)
	s.invitationService = service.NewInvitationService(repos, uow, perms, publisher)
	s.goalService = service.NewGoalService(repos, perms, publisher)
	s.registry = realtime.NewRegistry(perms.IsAdmin)
	s.router = realtime.NewRouter(s.registry)
	s.sweeper = service.NewSweeper(cfg.SweepInterval, s.networkService.CleanupExpiredSuspensions)
	s.flags = featureflags.NewManager(cfg.FeatureFlags)

	return s, publisher
}

// newAuthedApp builds a bare Fiber app that pins every request to the given
// user, the way the auth middleware would after verifying a token.
func newAuthedApp(userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})
	return app
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func seedUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedNetwork(t *testing.T, db *gorm.DB, name, tag string, mode models.ApprovalMode) *models.Network {
	t.Helper()
	network := &models.Network{
		Name:             name,
		TagName:          tag,
		ApprovalMode:     mode,
		SuspensionStatus: models.SuspensionStatusActive,
	}
	require.NoError(t, db.Create(network).Error)
	return network
}

func seedMember(t *testing.T, db *gorm.DB, networkID, userID uint, role models.NetworkRole) {
	t.Helper()
	require.NoError(t, db.Create(&models.NetworkMember{
		NetworkID: networkID,
		UserID:    userID,
		Role:      role,
	}).Error)
}
