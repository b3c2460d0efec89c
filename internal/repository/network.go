package repository

import (
	"context"
	"errors"
	"time"

	"nexus/internal/models"

	"gorm.io/gorm"
)

// NetworkRepository defines the interface for network data operations
type NetworkRepository interface {
	Create(ctx context.Context, network *models.Network) error
	GetByID(ctx context.Context, id uint) (*models.Network, error)
	GetByTag(ctx context.Context, tagName string) (*models.Network, error)
	GetBySuspensionToken(ctx context.Context, token string) (*models.Network, error)
	Update(ctx context.Context, network *models.Network) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, limit, offset int) ([]models.Network, error)
	ListExpiredSuspensions(ctx context.Context, now time.Time, limit int) ([]models.Network, error)
}

// networkRepository implements NetworkRepository
type networkRepository struct {
	db *gorm.DB
}

// NewNetworkRepository creates a new network repository
func NewNetworkRepository(db *gorm.DB) NetworkRepository {
	return &networkRepository{db: db}
}

func (r *networkRepository) Create(ctx context.Context, network *models.Network) error {
	if err := r.db.WithContext(ctx).Create(network).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *networkRepository) GetByID(ctx context.Context, id uint) (*models.Network, error) {
	var network models.Network
	if err := r.db.WithContext(ctx).First(&network, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Network", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &network, nil
}

func (r *networkRepository) GetByTag(ctx context.Context, tagName string) (*models.Network, error) {
	var network models.Network
	if err := r.db.WithContext(ctx).Where("tag_name = ?", tagName).First(&network).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No network with this tag
		}
		return nil, models.NewInternalError(err)
	}
	return &network, nil
}

func (r *networkRepository) GetBySuspensionToken(ctx context.Context, token string) (*models.Network, error) {
	var network models.Network
	if err := r.db.WithContext(ctx).Where("suspension_token = ?", token).First(&network).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Token unknown or already consumed
		}
		return nil, models.NewInternalError(err)
	}
	return &network, nil
}

func (r *networkRepository) Update(ctx context.Context, network *models.Network) error {
	if err := r.db.WithContext(ctx).Save(network).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *networkRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Network{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *networkRepository) Search(ctx context.Context, query string, limit, offset int) ([]models.Network, error) {
	var networks []models.Network
	q := r.db.WithContext(ctx).
		Where("suspension_status = ?", models.SuspensionStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("name LIKE ? OR tag_name LIKE ?", pattern, pattern)
	}
	if err := q.Find(&networks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return networks, nil
}

func (r *networkRepository) ListExpiredSuspensions(ctx context.Context, now time.Time, limit int) ([]models.Network, error) {
	var networks []models.Network
	if err := r.db.WithContext(ctx).
		Where("suspension_status = ? AND suspension_expires_at <= ?", models.SuspensionStatusSuspended, now).
		Limit(limit).
		Find(&networks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return networks, nil
}
