package service

import (
	"context"
	"sync"
	"testing"

	"nexus/internal/bus"
	"nexus/internal/database"
	"nexus/internal/models"
	"nexus/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// publisherStub records published events and can be told to fail per topic.
type publisherStub struct {
	mu         sync.Mutex
	events     []bus.Event
	topics     []bus.Topic
	failTopics map[bus.Topic]bool
}

func (p *publisherStub) Publish(_ context.Context, topic bus.Topic, event bus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTopics[topic] {
		return errBusDown
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *publisherStub) Close() error { return nil }

func (p *publisherStub) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

var errBusDown = &models.AppError{Code: "INTERNAL_ERROR", Message: "bus down"}

type testEnv struct {
	db        *gorm.DB
	repos     repository.Repos
	uow       repository.UnitOfWork
	perms     *PermissionEvaluator
	publisher *publisherStub
}

func newTestEnv(t *testing.T) *testEnv {
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

	repos := repository.NewRepos(db)
	return &testEnv{
		db:        db,
		repos:     repos,
		uow:       repository.NewUnitOfWork(db),
		perms:     NewPermissionEvaluator(repos.Members),
		publisher: &publisherStub{},
	}
}

func (e *testEnv) seedUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) seedNetwork(t *testing.T, name, tag string, mode models.ApprovalMode) *models.Network {
	t.Helper()
	network := &models.Network{
		Name:             name,
		TagName:          tag,
		ApprovalMode:     mode,
		SuspensionStatus: models.SuspensionStatusActive,
	}
	require.NoError(t, e.db.Create(network).Error)
	return network
}

func (e *testEnv) seedMember(t *testing.T, networkID, userID uint, role models.NetworkRole) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.NetworkMember{
		NetworkID: networkID,
		UserID:    userID,
		Role:      role,
	}).Error)
}

// avatarStub returns a fixed data URL without touching the encoder.
type avatarStub struct{}

func (avatarStub) Generate(uint, string) (string, error) {
	return "data:image/webp;base64,c3R1Yg==", nil
}
