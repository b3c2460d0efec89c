package server

import (
	"strings"

	"nexus/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SuspendNetwork handles POST /api/networks/:id/suspend
// The returned token is the only way to reclaim the network for callers who
// lose their admin session, so it is shown exactly once.
func (s *Server) SuspendNetwork(c *fiber.Ctx) error {
	userID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	token, err := s.networkService.Suspend(c.UserContext(), userID, networkID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"suspension_token": token,
		"window_days":      int(models.SuspensionWindow.Hours() / 24),
	})
}

// RestoreNetwork handles POST /api/networks/:id/restore
func (s *Server) RestoreNetwork(c *fiber.Ctx) error {
	userID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	network, err := s.networkService.Restore(c.UserContext(), userID, networkID, strings.TrimSpace(req.Token))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(network)
}
