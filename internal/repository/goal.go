package repository

import (
	"context"
	"errors"

	"nexus/internal/models"

	"gorm.io/gorm"
)

// GoalRepository defines the interface for network goal operations
type GoalRepository interface {
	CreateGoal(ctx context.Context, goal *models.NetworkGoal) error
	GetGoalByID(ctx context.Context, id uint) (*models.NetworkGoal, error)
	ListByNetwork(ctx context.Context, networkID uint) ([]models.NetworkGoal, error)
	UpdateGoal(ctx context.Context, goal *models.NetworkGoal) error
	DeleteGoal(ctx context.Context, id uint) error
	ReplaceMemberGoals(ctx context.Context, networkID, userID uint, goalIDs []uint) error
	ListMemberGoals(ctx context.Context, networkID, userID uint) ([]models.NetworkMemberGoal, error)
	DeleteMemberGoalsForUser(ctx context.Context, networkID, userID uint) error
	DeleteAllForNetwork(ctx context.Context, networkID uint) error
}

// goalRepository implements GoalRepository
type goalRepository struct {
	db *gorm.DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) CreateGoal(ctx context.Context, goal *models.NetworkGoal) error {
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *goalRepository) GetGoalByID(ctx context.Context, id uint) (*models.NetworkGoal, error) {
	var goal models.NetworkGoal
	if err := r.db.WithContext(ctx).First(&goal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Goal", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &goal, nil
}

func (r *goalRepository) ListByNetwork(ctx context.Context, networkID uint) ([]models.NetworkGoal, error) {
	var goals []models.NetworkGoal
	if err := r.db.WithContext(ctx).
		Where("network_id = ?", networkID).
		Order("created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return goals, nil
}

func (r *goalRepository) UpdateGoal(ctx context.Context, goal *models.NetworkGoal) error {
	if err := r.db.WithContext(ctx).Save(goal).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *goalRepository) DeleteGoal(ctx context.Context, id uint) error {
	// Selections referencing the goal go first so no orphan rows remain.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", id).Delete(&models.NetworkMemberGoal{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		result := tx.Delete(&models.NetworkGoal{}, id)
		if result.Error != nil {
			return models.NewInternalError(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Goal", id)
		}
		return nil
	})
}

func (r *goalRepository) ReplaceMemberGoals(ctx context.Context, networkID, userID uint, goalIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("network_id = ? AND user_id = ?", networkID, userID).
			Delete(&models.NetworkMemberGoal{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if len(goalIDs) == 0 {
			return nil
		}
		selections := make([]models.NetworkMemberGoal, 0, len(goalIDs))
		for _, goalID := range goalIDs {
			selections = append(selections, models.NetworkMemberGoal{
				NetworkID: networkID,
				UserID:    userID,
				GoalID:    goalID,
			})
		}
		if err := tx.Create(&selections).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *goalRepository) ListMemberGoals(ctx context.Context, networkID, userID uint) ([]models.NetworkMemberGoal, error) {
	var selections []models.NetworkMemberGoal
	if err := r.db.WithContext(ctx).
		Where("network_id = ? AND user_id = ?", networkID, userID).
		Preload("Goal").
		Find(&selections).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return selections, nil
}

func (r *goalRepository) DeleteMemberGoalsForUser(ctx context.Context, networkID, userID uint) error {
	if err := r.db.WithContext(ctx).
		Where("network_id = ? AND user_id = ?", networkID, userID).
		Delete(&models.NetworkMemberGoal{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *goalRepository) DeleteAllForNetwork(ctx context.Context, networkID uint) error {
	if err := r.db.WithContext(ctx).
		Where("network_id = ?", networkID).
		Delete(&models.NetworkMemberGoal{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).
		Where("network_id = ?", networkID).
		Delete(&models.NetworkGoal{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
