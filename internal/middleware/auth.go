// Package middleware provides authentication, logging, and metrics middleware.
package middleware

import (
	"errors"
	"strconv"
	"strings"

	"nexus/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// VerifyToken validates a bearer token and returns the authenticated user ID.
// The three failure modes stay distinguishable: missing token, invalid token,
// and expired session.
func VerifyToken(tokenString string) (uint, error) {
	if tokenString == "" {
		return 0, errors.New("authentication token required")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, errors.New("session expired")
		}
		return 0, errors.New("invalid token")
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}

	// User ID travels in the "sub" claim (RFC 7519 subject).
	subClaim, ok := claims["sub"]
	if !ok {
		return 0, errors.New("invalid token structure - missing subject")
	}
	subStr, ok := subClaim.(string)
	if !ok {
		return 0, errors.New("invalid token subject type")
	}
	userIDVal, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return 0, errors.New("invalid user ID in token")
	}

	return uint(userIDVal), nil
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	userID, err := VerifyToken(parts[1])
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("userID", userID)
	return c.Next()
}

// WebSocketAuthRequired validates JWT tokens from query parameters for
// WebSocket connections, falling back to the Authorization header.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication token required",
			})
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}
		token = parts[1]
	}

	userID, err := VerifyToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("userID", userID)
	return c.Next()
}
