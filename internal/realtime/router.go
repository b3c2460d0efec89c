package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"nexus/internal/bus"
	"nexus/internal/middleware"
)

// clientFrame is the envelope written to websocket clients.
type clientFrame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type framePayload struct {
	NetworkID uint                   `json:"network_id,omitempty"`
	UserID    uint                   `json:"user_id,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Router consumes every bus topic and fans each event out to the registry
// rooms its scope names. It holds no state of its own.
type Router struct {
	registry *Registry
}

// NewRouter creates a router delivering into the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Start subscribes the router to every topic. The subscriptions live until
// ctx is cancelled.
func (r *Router) Start(ctx context.Context, sub bus.Subscriber) error {
	for _, topic := range bus.AllTopics() {
		if err := sub.Subscribe(ctx, topic, r.Route); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Route delivers one event to the connections its scope selects. Unknown
// scopes are logged and dropped, never retried.
func (r *Router) Route(ctx context.Context, event bus.Event) error {
	frame, err := json.Marshal(clientFrame{
		Type: event.Type,
		Payload: framePayload{
			NetworkID: event.NetworkID,
			UserID:    event.UserID,
			Title:     event.Title,
			Message:   event.Message,
			Data:      event.Data,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal client frame: %w", err)
	}

	switch event.Scope {
	case bus.ScopeUser:
		r.registry.EmitToUser(event.UserID, frame)
	case bus.ScopeNetwork:
		r.registry.EmitToNetwork(event.NetworkID, frame)
	case bus.ScopeNetworkAdmins:
		r.registry.EmitToNetworkAdmins(event.NetworkID, frame)
	case bus.ScopeBroadcast:
		r.registry.BroadcastAll(frame)
	default:
		middleware.Logger.WarnContext(ctx, "event with unknown scope dropped",
			slog.String("type", event.Type),
			slog.String("scope", string(event.Scope)),
		)
	}
	return nil
}
