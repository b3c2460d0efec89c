package server

import (
	"nexus/internal/models"
	"nexus/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateInvitations handles POST /api/networks/:id/invitations
// Users who are already members, already hold a live invitation, or do not
// exist are silently skipped; the response lists what was actually created.
func (s *Server) CreateInvitations(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.CreateInvitationsInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	invitations, err := s.invitationService.CreateInvitations(c.UserContext(), actorID, networkID, input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(invitations)
}

// GetMyInvitations handles GET /api/invitations/me
func (s *Server) GetMyInvitations(c *fiber.Ctx) error {
	userID := currentUserID(c)

	invitations, err := s.invitationService.ListMyInvitations(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(invitations)
}
