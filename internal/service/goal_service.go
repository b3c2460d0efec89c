package service

import (
	"context"

	"nexus/internal/bus"
	"nexus/internal/models"
	"nexus/internal/repository"
)

// GoalService owns shared network goals and per-member goal selection.
type GoalService struct {
	repos     repository.Repos
	perms     *PermissionEvaluator
	publisher bus.Publisher
}

// NewGoalService returns a new GoalService.
func NewGoalService(repos repository.Repos, perms *PermissionEvaluator, publisher bus.Publisher) *GoalService {
	return &GoalService{
		repos:     repos,
		perms:     perms,
		publisher: publisher,
	}
}

// CreateGoal adds a shared goal. Admins and leaders only.
func (s *GoalService) CreateGoal(ctx context.Context, actorID, networkID uint, title, description string) (*models.NetworkGoal, error) {
	if err := s.requireGoalManager(ctx, networkID, actorID); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, models.NewValidationError("Goal title is required")
	}

	goal := &models.NetworkGoal{
		NetworkID:       networkID,
		Title:           title,
		Description:     description,
		CreatedByUserID: actorID,
	}
	if err := s.repos.Goals.CreateGoal(ctx, goal); err != nil {
		return nil, err
	}

	if err := publishEvent(ctx, s.publisher, bus.TopicGoalUpdates, bus.Event{
		Type:      bus.EventGoalCreated,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    actorID,
		Data:      map[string]interface{}{"goal_id": goal.ID, "title": goal.Title},
	}); err != nil {
		return nil, err
	}
	return goal, nil
}

// UpdateGoal edits a goal's title or description. Admins and leaders only.
func (s *GoalService) UpdateGoal(ctx context.Context, actorID, networkID, goalID uint, title, description *string) (*models.NetworkGoal, error) {
	if err := s.requireGoalManager(ctx, networkID, actorID); err != nil {
		return nil, err
	}

	goal, err := s.repos.Goals.GetGoalByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.NetworkID != networkID {
		return nil, models.NewNotFoundError("Goal", goalID)
	}

	if title != nil {
		if *title == "" {
			return nil, models.NewValidationError("Goal title is required")
		}
		goal.Title = *title
	}
	if description != nil {
		goal.Description = *description
	}
	if err := s.repos.Goals.UpdateGoal(ctx, goal); err != nil {
		return nil, err
	}

	if err := publishEvent(ctx, s.publisher, bus.TopicGoalUpdates, bus.Event{
		Type:      bus.EventGoalUpdated,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    actorID,
		Data:      map[string]interface{}{"goal_id": goal.ID},
	}); err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal removes a goal and every member selection of it.
func (s *GoalService) DeleteGoal(ctx context.Context, actorID, networkID, goalID uint) error {
	if err := s.requireGoalManager(ctx, networkID, actorID); err != nil {
		return err
	}

	goal, err := s.repos.Goals.GetGoalByID(ctx, goalID)
	if err != nil {
		return err
	}
	if goal.NetworkID != networkID {
		return models.NewNotFoundError("Goal", goalID)
	}

	if err := s.repos.Goals.DeleteGoal(ctx, goalID); err != nil {
		return err
	}

	return publishEvent(ctx, s.publisher, bus.TopicGoalUpdates, bus.Event{
		Type:      bus.EventGoalDeleted,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    actorID,
		Data:      map[string]interface{}{"goal_id": goalID},
	})
}

// ListGoals returns a network's goals. Members only.
func (s *GoalService) ListGoals(ctx context.Context, actorID, networkID uint) ([]models.NetworkGoal, error) {
	_, isMember, err := s.perms.Role(ctx, networkID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, models.NewForbiddenError("Only members can view network goals")
	}
	return s.repos.Goals.ListByNetwork(ctx, networkID)
}

// SelectGoals replaces the caller's goal selections with the given set.
// Every goal must belong to the network.
func (s *GoalService) SelectGoals(ctx context.Context, actorID, networkID uint, goalIDs []uint) error {
	_, isMember, err := s.perms.Role(ctx, networkID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return models.NewForbiddenError("Only members can select goals")
	}

	for _, goalID := range goalIDs {
		goal, err := s.repos.Goals.GetGoalByID(ctx, goalID)
		if err != nil {
			return err
		}
		if goal.NetworkID != networkID {
			return models.NewValidationError("Goal does not belong to this network")
		}
	}

	if err := s.repos.Goals.ReplaceMemberGoals(ctx, networkID, actorID, goalIDs); err != nil {
		return err
	}

	return publishEvent(ctx, s.publisher, bus.TopicGoalUpdates, bus.Event{
		Type:      bus.EventGoalsSelected,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    actorID,
		Data:      map[string]interface{}{"count": len(goalIDs)},
	})
}

// MemberGoals returns the selections of one member.
func (s *GoalService) MemberGoals(ctx context.Context, actorID, networkID, userID uint) ([]models.NetworkMemberGoal, error) {
	_, isMember, err := s.perms.Role(ctx, networkID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, models.NewForbiddenError("Only members can view goal selections")
	}
	return s.repos.Goals.ListMemberGoals(ctx, networkID, userID)
}

func (s *GoalService) requireGoalManager(ctx context.Context, networkID, actorID uint) error {
	role, isMember, err := s.perms.Role(ctx, networkID, actorID)
	if err != nil {
		return err
	}
	if !isMember || !role.AtLeast(models.NetworkRoleLeader) {
		return models.NewForbiddenError("Only admins and leaders can manage goals")
	}
	return nil
}
