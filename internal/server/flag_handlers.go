package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetMyFlags returns every configured feature flag evaluated for the
// authenticated user, so clients can branch without re-implementing
// rollout logic.
func (s *Server) GetMyFlags(c *fiber.Ctx) error {
	userID := currentUserID(c)
	return c.JSON(fiber.Map{
		"flags": s.flags.Snapshot(userID),
	})
}
