package repository

import (
	"context"
	"errors"

	"nexus/internal/models"

	"gorm.io/gorm"
)

// MembershipRepository defines the interface for network membership operations
type MembershipRepository interface {
	Add(ctx context.Context, member *models.NetworkMember) error
	Get(ctx context.Context, networkID, userID uint) (*models.NetworkMember, error)
	ListByNetwork(ctx context.Context, networkID uint) ([]models.NetworkMember, error)
	ListNetworkIDsForUser(ctx context.Context, userID uint) ([]uint, error)
	UpdateRole(ctx context.Context, networkID, userID uint, role models.NetworkRole) error
	Remove(ctx context.Context, networkID, userID uint) error
	CountAdmins(ctx context.Context, networkID uint) (int64, error)
	CountMembers(ctx context.Context, networkID uint) (int64, error)
	DeleteAllForNetwork(ctx context.Context, networkID uint) error
}

// membershipRepository implements MembershipRepository
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Add(ctx context.Context, member *models.NetworkMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("Already a member of this network")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *membershipRepository) Get(ctx context.Context, networkID, userID uint) (*models.NetworkMember, error) {
	var member models.NetworkMember
	if err := r.db.WithContext(ctx).
		Where("network_id = ? AND user_id = ?", networkID, userID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Not a member
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

func (r *membershipRepository) ListByNetwork(ctx context.Context, networkID uint) ([]models.NetworkMember, error) {
	var members []models.NetworkMember
	if err := r.db.WithContext(ctx).
		Where("network_id = ?", networkID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return members, nil
}

func (r *membershipRepository) ListNetworkIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.NetworkMember{}).
		Where("user_id = ?", userID).
		Pluck("network_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *membershipRepository) UpdateRole(ctx context.Context, networkID, userID uint, role models.NetworkRole) error {
	result := r.db.WithContext(ctx).
		Model(&models.NetworkMember{}).
		Where("network_id = ? AND user_id = ?", networkID, userID).
		Update("role", role)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Membership", userID)
	}
	return nil
}

func (r *membershipRepository) Remove(ctx context.Context, networkID, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("network_id = ? AND user_id = ?", networkID, userID).
		Delete(&models.NetworkMember{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Membership", userID)
	}
	return nil
}

func (r *membershipRepository) CountAdmins(ctx context.Context, networkID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.NetworkMember{}).
		Where("network_id = ? AND role = ?", networkID, models.NetworkRoleAdmin).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *membershipRepository) CountMembers(ctx context.Context, networkID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.NetworkMember{}).
		Where("network_id = ?", networkID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *membershipRepository) DeleteAllForNetwork(ctx context.Context, networkID uint) error {
	if err := r.db.WithContext(ctx).
		Where("network_id = ?", networkID).
		Delete(&models.NetworkMember{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
