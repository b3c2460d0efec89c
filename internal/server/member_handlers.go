package server

import (
	"nexus/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMembers handles GET /api/networks/:id/members
func (s *Server) GetMembers(c *fiber.Ctx) error {
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	members, err := s.membershipService.GetMembers(c.UserContext(), networkID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(members)
}

// AssignRole handles PUT /api/networks/:id/members/:userId/role
func (s *Server) AssignRole(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	var req struct {
		Role models.NetworkRole `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.membershipService.AssignRole(c.UserContext(), actorID, networkID, targetID, req.Role); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Role updated"})
}

// PromoteToAdmin handles POST /api/networks/:id/members/:userId/promote-admin
func (s *Server) PromoteToAdmin(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.membershipService.PromoteToAdmin(c.UserContext(), actorID, networkID, targetID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Member promoted to admin"})
}

// ResignAdmin handles POST /api/networks/:id/resign-admin
func (s *Server) ResignAdmin(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.membershipService.ResignAdmin(c.UserContext(), actorID, networkID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Admin role resigned"})
}

// RemoveMember handles DELETE /api/networks/:id/members/:userId
func (s *Server) RemoveMember(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.membershipService.RemoveMember(c.UserContext(), actorID, networkID, targetID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Member removed"})
}

// LeaveNetwork handles DELETE /api/networks/:id/members/me
func (s *Server) LeaveNetwork(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.membershipService.RemoveMember(c.UserContext(), actorID, networkID, actorID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Left network"})
}
