package server

import (
	"nexus/internal/models"
	"nexus/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RequestJoin handles POST /api/networks/:id/join-requests
// The outcome depends on the network's approval mode: auto admits
// immediately, passcode checks the supplied code, manual queues the request.
func (s *Server) RequestJoin(c *fiber.Ctx) error {
	userID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Passcode *string `json:"passcode,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	outcome, err := s.joinService.RequestJoin(c.UserContext(), userID, networkID, req.Passcode)
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if outcome.Status == service.JoinStatusPending {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(outcome)
}

// JoinNetwork handles POST /api/networks/:id/join
// Accepts an invite token or a passcode; an explicit token wins over both
// the passcode and any silently-applied standing invitation.
func (s *Server) JoinNetwork(c *fiber.Ctx) error {
	userID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		InviteToken *string `json:"invite_token,omitempty"`
		Passcode    *string `json:"passcode,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	outcome, err := s.joinService.JoinNetwork(c.UserContext(), userID, networkID, req.InviteToken, req.Passcode)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(outcome)
}

// ListPendingRequests handles GET /api/networks/:id/join-requests
func (s *Server) ListPendingRequests(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	requests, err := s.joinService.ListPendingRequests(c.UserContext(), actorID, networkID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(requests)
}

// ApproveJoinRequest handles POST /api/join-requests/:requestId/approve
func (s *Server) ApproveJoinRequest(c *fiber.Ctx) error {
	return s.handleJoinRequest(c, true)
}

// RejectJoinRequest handles POST /api/join-requests/:requestId/reject
func (s *Server) RejectJoinRequest(c *fiber.Ctx) error {
	return s.handleJoinRequest(c, false)
}

func (s *Server) handleJoinRequest(c *fiber.Ctx, approve bool) error {
	actorID := currentUserID(c)
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}

	if err := s.joinService.HandleJoinRequest(c.UserContext(), actorID, requestID, approve); err != nil {
		return respondServiceError(c, err)
	}

	message := "Join request rejected"
	if approve {
		message = "Join request approved"
	}
	return c.JSON(fiber.Map{"message": message})
}
