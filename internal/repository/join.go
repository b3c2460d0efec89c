package repository

import (
	"context"
	"errors"

	"nexus/internal/models"

	"gorm.io/gorm"
)

// JoinRequestRepository defines the interface for pending join operations
type JoinRequestRepository interface {
	Create(ctx context.Context, join *models.PendingNetworkJoin) error
	GetByID(ctx context.Context, id uint) (*models.PendingNetworkJoin, error)
	GetPending(ctx context.Context, networkID, userID uint) (*models.PendingNetworkJoin, error)
	ListPendingByNetwork(ctx context.Context, networkID uint) ([]models.PendingNetworkJoin, error)
	UpdateStatus(ctx context.Context, id uint, status models.JoinRequestStatus) error
	DeleteAllForNetwork(ctx context.Context, networkID uint) error
}

// joinRequestRepository implements JoinRequestRepository
type joinRequestRepository struct {
	db *gorm.DB
}

// NewJoinRequestRepository creates a new join request repository
func NewJoinRequestRepository(db *gorm.DB) JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

func (r *joinRequestRepository) Create(ctx context.Context, join *models.PendingNetworkJoin) error {
	if err := r.db.WithContext(ctx).Create(join).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *joinRequestRepository) GetByID(ctx context.Context, id uint) (*models.PendingNetworkJoin, error) {
	var join models.PendingNetworkJoin
	if err := r.db.WithContext(ctx).Preload("User").First(&join, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Join request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &join, nil
}

func (r *joinRequestRepository) GetPending(ctx context.Context, networkID, userID uint) (*models.PendingNetworkJoin, error) {
	var join models.PendingNetworkJoin
	if err := r.db.WithContext(ctx).
		Where("network_id = ? AND user_id = ? AND status = ?", networkID, userID, models.JoinRequestStatusPending).
		First(&join).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No open request
		}
		return nil, models.NewInternalError(err)
	}
	return &join, nil
}

func (r *joinRequestRepository) ListPendingByNetwork(ctx context.Context, networkID uint) ([]models.PendingNetworkJoin, error) {
	var joins []models.PendingNetworkJoin
	if err := r.db.WithContext(ctx).
		Where("network_id = ? AND status = ?", networkID, models.JoinRequestStatusPending).
		Preload("User").
		Order("created_at ASC").
		Find(&joins).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return joins, nil
}

func (r *joinRequestRepository) UpdateStatus(ctx context.Context, id uint, status models.JoinRequestStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.PendingNetworkJoin{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Join request", id)
	}
	return nil
}

func (r *joinRequestRepository) DeleteAllForNetwork(ctx context.Context, networkID uint) error {
	if err := r.db.WithContext(ctx).
		Where("network_id = ?", networkID).
		Delete(&models.PendingNetworkJoin{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
