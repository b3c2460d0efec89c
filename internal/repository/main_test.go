package repository

import (
	"testing"

	"nexus/internal/database"
	"nexus/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedNetwork(t *testing.T, db *gorm.DB, name, tag string) *models.Network {
	t.Helper()
	network := &models.Network{
		Name:             name,
		TagName:          tag,
		ApprovalMode:     models.ApprovalModeAuto,
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
