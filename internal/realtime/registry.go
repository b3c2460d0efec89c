// Package realtime tracks live WebSocket connections and delivers bus events
// to user, network, and admin-only rooms.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"nexus/internal/middleware"
	"nexus/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// RoleChecker reports whether a user currently holds an admin-equivalent
// role in a network. Evaluated once per room join, never cached here.
type RoleChecker func(ctx context.Context, networkID, userID uint) (bool, error)

// Registry tracks which user owns each live connection, which network rooms
// each connection has joined, and which of those grant admin-only delivery.
// It is built at process start, injected where needed, and torn down at
// shutdown. All state is in-memory only and rebuilt from scratch on restart.
type Registry struct {
	mu           sync.RWMutex
	userConns    map[uint]map[*Client]struct{}
	networkRooms map[uint]map[*Client]struct{}
	adminRooms   map[uint]map[*Client]struct{}
	totalConns   int

	roleCheck RoleChecker

	onUserOnline  func(userID uint)
	onUserOffline func(userID uint)
}

// NewRegistry creates an empty connection registry.
func NewRegistry(roleCheck RoleChecker) *Registry {
	return &Registry{
		userConns:    make(map[uint]map[*Client]struct{}),
		networkRooms: make(map[uint]map[*Client]struct{}),
		adminRooms:   make(map[uint]map[*Client]struct{}),
		roleCheck:    roleCheck,
	}
}

// SetPresenceCallbacks registers hooks fired exactly once per user on first
// connect and last disconnect.
func (r *Registry) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	r.mu.Lock()
	r.onUserOnline = onOnline
	r.onUserOffline = onOffline
	r.mu.Unlock()
}

// Register adds a connection for userID. Returns the Client or an error when
// connection limits are exceeded.
func (r *Registry) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	r.mu.Lock()

	if r.totalConns >= maxTotalConns {
		r.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	conns, ok := r.userConns[userID]
	if !ok {
		conns = make(map[*Client]struct{})
		r.userConns[userID] = conns
	}
	if len(conns) >= maxConnsPerUser {
		r.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(r, conn, userID)
	conns[client] = struct{}{}
	r.totalConns++
	firstConn := len(conns) == 1
	onOnline := r.onUserOnline
	r.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()

	if firstConn && onOnline != nil {
		onOnline(userID)
	}

	return client, nil
}

// Unregister removes the connection from every map it appears in. Rooms left
// empty are dropped entirely. Fires the offline hook when this was the
// user's last live connection.
func (r *Registry) Unregister(client *Client) {
	r.mu.Lock()

	conns, ok := r.userConns[client.UserID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, exists := conns[client]; !exists {
		r.mu.Unlock()
		return
	}
	delete(conns, client)
	r.totalConns--
	lastConn := len(conns) == 0
	if lastConn {
		delete(r.userConns, client.UserID)
	}

	for networkID, room := range r.networkRooms {
		if _, in := room[client]; in {
			delete(room, client)
			observability.WebSocketRoomConnections.WithLabelValues("network").Dec()
			if len(room) == 0 {
				delete(r.networkRooms, networkID)
			}
		}
	}
	for networkID, room := range r.adminRooms {
		if _, in := room[client]; in {
			delete(room, client)
			observability.WebSocketRoomConnections.WithLabelValues("admin").Dec()
			if len(room) == 0 {
				delete(r.adminRooms, networkID)
			}
		}
	}

	onOffline := r.onUserOffline
	r.mu.Unlock()

	observability.WebSocketConnectionsTotal.Dec()

	if lastConn && onOffline != nil {
		onOffline(client.UserID)
	}
}

// JoinNetworks subscribes the connection to each network's room. Admin-room
// membership is computed per call from the current committed role.
func (r *Registry) JoinNetworks(ctx context.Context, client *Client, networkIDs []uint) {
	for _, networkID := range networkIDs {
		r.mu.Lock()
		room, ok := r.networkRooms[networkID]
		if !ok {
			room = make(map[*Client]struct{})
			r.networkRooms[networkID] = room
		}
		if _, in := room[client]; !in {
			room[client] = struct{}{}
			observability.WebSocketRoomConnections.WithLabelValues("network").Inc()
		}
		r.mu.Unlock()

		if r.roleCheck == nil {
			continue
		}
		isAdmin, err := r.roleCheck(ctx, networkID, client.UserID)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "room join role check failed",
				slog.Uint64("network_id", uint64(networkID)),
				slog.Uint64("user_id", uint64(client.UserID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !isAdmin {
			continue
		}

		r.mu.Lock()
		adminRoom, ok := r.adminRooms[networkID]
		if !ok {
			adminRoom = make(map[*Client]struct{})
			r.adminRooms[networkID] = adminRoom
		}
		if _, in := adminRoom[client]; !in {
			adminRoom[client] = struct{}{}
			observability.WebSocketRoomConnections.WithLabelValues("admin").Inc()
		}
		r.mu.Unlock()
	}
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns, ok := r.userConns[userID]
	return ok && len(conns) > 0
}

// EmitToUser sends the message to every live connection of one user.
func (r *Registry) EmitToUser(userID uint, message []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.userConns[userID] {
		c.TrySend(message)
	}
}

// EmitToNetwork sends the message to every connection in a network's room.
func (r *Registry) EmitToNetwork(networkID uint, message []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.networkRooms[networkID] {
		c.TrySend(message)
	}
}

// EmitToNetworkAdmins sends the message to a network's admin-only room.
func (r *Registry) EmitToNetworkAdmins(networkID uint, message []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.adminRooms[networkID] {
		c.TrySend(message)
	}
}

// BroadcastAll sends the message to every connected client.
func (r *Registry) BroadcastAll(message []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conns := range r.userConns {
		for c := range conns {
			c.TrySend(message)
		}
	}
}

// Shutdown gracefully closes all connections and clears every map.
func (r *Registry) Shutdown(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, conns := range r.userConns {
		for client := range conns {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Warn("failed to write close message",
					slog.Uint64("user_id", uint64(userID)),
					slog.String("error", err.Error()),
				)
			}
			if err := client.Conn.Close(); err != nil {
				middleware.Logger.Warn("failed to close websocket",
					slog.Uint64("user_id", uint64(userID)),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	r.userConns = make(map[uint]map[*Client]struct{})
	r.networkRooms = make(map[uint]map[*Client]struct{})
	r.adminRooms = make(map[uint]map[*Client]struct{})
	r.totalConns = 0

	return nil
}

// roomSizes returns current room counts; tests use this to assert cleanup.
func (r *Registry) roomSizes(networkID uint) (network, admin int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.networkRooms[networkID]), len(r.adminRooms[networkID])
}
