package server

import (
	"nexus/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateGoal handles POST /api/networks/:id/goals
func (s *Server) CreateGoal(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	goal, err := s.goalService.CreateGoal(c.UserContext(), actorID, networkID, req.Title, req.Description)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(goal)
}

// GetGoals handles GET /api/networks/:id/goals
func (s *Server) GetGoals(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	goals, err := s.goalService.ListGoals(c.UserContext(), actorID, networkID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(goals)
}

// UpdateGoal handles PUT /api/networks/:id/goals/:goalId
func (s *Server) UpdateGoal(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	goalID, err := s.parseID(c, "goalId")
	if err != nil {
		return nil
	}

	var req struct {
		Title       *string `json:"title,omitempty"`
		Description *string `json:"description,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	goal, err := s.goalService.UpdateGoal(c.UserContext(), actorID, networkID, goalID, req.Title, req.Description)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(goal)
}

// DeleteGoal handles DELETE /api/networks/:id/goals/:goalId
func (s *Server) DeleteGoal(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	goalID, err := s.parseID(c, "goalId")
	if err != nil {
		return nil
	}

	if err := s.goalService.DeleteGoal(c.UserContext(), actorID, networkID, goalID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Goal deleted"})
}

// SelectGoals handles PUT /api/networks/:id/goals/selection
// Replaces the caller's goal selection wholesale.
func (s *Server) SelectGoals(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		GoalIDs []uint `json:"goal_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.goalService.SelectGoals(c.UserContext(), actorID, networkID, req.GoalIDs); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Goal selection updated"})
}

// GetMemberGoals handles GET /api/networks/:id/members/:userId/goals
func (s *Server) GetMemberGoals(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	selections, err := s.goalService.MemberGoals(c.UserContext(), actorID, networkID, targetID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(selections)
}
