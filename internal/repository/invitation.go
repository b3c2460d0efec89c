package repository

import (
	"context"
	"errors"
	"time"

	"nexus/internal/models"

	"gorm.io/gorm"
)

// InvitationRepository defines the interface for network invitation operations
type InvitationRepository interface {
	CreateBatch(ctx context.Context, invitations []models.NetworkInvitation) error
	GetByToken(ctx context.Context, token string) (*models.NetworkInvitation, error)
	GetActiveForUser(ctx context.Context, networkID, userID uint, now time.Time) (*models.NetworkInvitation, error)
	ListPendingForUser(ctx context.Context, userID uint, now time.Time) ([]models.NetworkInvitation, error)
	MarkUsed(ctx context.Context, id uint) error
	DeleteAllForNetwork(ctx context.Context, networkID uint) error
}

// invitationRepository implements InvitationRepository
type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) CreateBatch(ctx context.Context, invitations []models.NetworkInvitation) error {
	if len(invitations) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&invitations).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*models.NetworkInvitation, error) {
	var invitation models.NetworkInvitation
	if err := r.db.WithContext(ctx).
		Where("invite_token = ?", token).
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Unknown token
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}

func (r *invitationRepository) GetActiveForUser(ctx context.Context, networkID, userID uint, now time.Time) (*models.NetworkInvitation, error) {
	var invitation models.NetworkInvitation
	if err := r.db.WithContext(ctx).
		Where("network_id = ? AND invited_user_id = ? AND is_used = ? AND expires_at > ?",
			networkID, userID, false, now).
		Order("created_at DESC").
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No live invitation
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}

func (r *invitationRepository) ListPendingForUser(ctx context.Context, userID uint, now time.Time) ([]models.NetworkInvitation, error) {
	var invitations []models.NetworkInvitation
	if err := r.db.WithContext(ctx).
		Where("invited_user_id = ? AND is_used = ? AND expires_at > ?", userID, false, now).
		Preload("Network").
		Preload("InvitedByUser").
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return invitations, nil
}

func (r *invitationRepository) MarkUsed(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.NetworkInvitation{}).
		Where("id = ?", id).
		Update("is_used", true)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Invitation", id)
	}
	return nil
}

func (r *invitationRepository) DeleteAllForNetwork(ctx context.Context, networkID uint) error {
	if err := r.db.WithContext(ctx).
		Where("network_id = ?", networkID).
		Delete(&models.NetworkInvitation{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
