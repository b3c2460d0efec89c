package server

import (
	"context"
	"encoding/json"
	"log"

	"nexus/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgradeRequired rejects plain HTTP requests on websocket routes.
func (s *Server) WebSocketUpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketHandler handles WebSocket connections for real-time delivery.
// Each connection is registered with the registry and auto-joined to the
// rooms of every network the user belongs to.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		// Get userID from context locals (set by the auth middleware)
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		client, err := s.registry.Register(userID, conn)
		if err != nil {
			log.Printf("WebSocket: Failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = s.handleClientMessage

		// Join rooms for the user's current memberships before reading
		// so no room-scoped event published after connect is missed.
		s.joinMemberRooms(context.Background(), client)

		go client.WritePump()
		client.ReadPump()
	})
}

// handleClientMessage processes one inbound frame from a connection. The
// only supported request is a room resync; everything else is ignored.
func (s *Server) handleClientMessage(client *realtime.Client, message []byte) {
	var incoming struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &incoming); err != nil {
		log.Printf("WebSocket: Invalid message format from user %d", client.UserID)
		return
	}

	switch incoming.Type {
	case "join_networks":
		// Room membership always derives from committed memberships, never
		// from a client-supplied network list.
		s.joinMemberRooms(context.Background(), client)
	}
}

// joinMemberRooms subscribes the connection to every network the user is a
// member of, including admin rooms where the committed role qualifies.
func (s *Server) joinMemberRooms(ctx context.Context, client *realtime.Client) {
	networkIDs, err := s.repos.Members.ListNetworkIDsForUser(ctx, client.UserID)
	if err != nil {
		log.Printf("WebSocket: Failed to load networks for user %d: %v", client.UserID, err)
		return
	}
	s.registry.JoinNetworks(ctx, client, networkIDs)
}
