package service

import (
	"context"
	"log/slog"

	"nexus/internal/bus"
	"nexus/internal/middleware"
	"nexus/internal/models"
)

// publishEvent publishes and waits. A bus failure on a mutating path is an
// internal error for the caller, after logging.
func publishEvent(ctx context.Context, p bus.Publisher, topic bus.Topic, event bus.Event) error {
	if err := p.Publish(ctx, topic, event); err != nil {
		middleware.Logger.ErrorContext(ctx, "event publish failed",
			slog.String("topic", string(topic)),
			slog.String("event_type", event.Type),
			slog.String("error", err.Error()),
		)
		return models.NewInternalError(err)
	}
	return nil
}
