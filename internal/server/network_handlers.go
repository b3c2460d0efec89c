package server

import (
	"strings"

	"nexus/internal/models"
	"nexus/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateNetwork handles POST /api/networks
func (s *Server) CreateNetwork(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var input service.CreateNetworkInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	network, err := s.networkService.CreateNetwork(c.UserContext(), userID, input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(network)
}

// GetNetwork handles GET /api/networks/:id
func (s *Server) GetNetwork(c *fiber.Ctx) error {
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	network, err := s.networkService.GetNetwork(c.UserContext(), networkID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(network)
}

// SearchNetworks handles GET /api/networks
func (s *Server) SearchNetworks(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	page := parsePagination(c, 25)

	networks, err := s.networkService.SearchNetworks(c.UserContext(), query, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(networks)
}

// EditNetwork handles PUT /api/networks/:id
func (s *Server) EditNetwork(c *fiber.Ctx) error {
	userID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.EditNetworkInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	network, err := s.networkService.EditNetwork(c.UserContext(), userID, networkID, input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(network)
}

// UpdatePasscode handles PUT /api/networks/:id/passcode
func (s *Server) UpdatePasscode(c *fiber.Ctx) error {
	userID := currentUserID(c)
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.networkService.UpdatePasscode(c.UserContext(), userID, networkID, req.Passcode); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Passcode updated"})
}

// GetShareLink handles GET /api/networks/:id/share-link
func (s *Server) GetShareLink(c *fiber.Ctx) error {
	networkID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	link, err := s.networkService.ShareLink(c.UserContext(), networkID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"share_link": link})
}
