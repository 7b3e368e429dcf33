// Package events publishes resource lifecycle notifications.
//
// Publishing is best-effort: callers log and count failures and never fail the
// originating request because of them.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"baseresource/internal/resource/models"
	"baseresource/pkg/requestcontext"
)

// Type names the lifecycle transition an event reports.
type Type string

const (
	TypeCreated   Type = "created"
	TypeUpdated   Type = "updated"
	TypeDeleted   Type = "deleted"
	TypeRecovered Type = "recovered"
)

// Event reports one applied transition.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	Resource   string    `json:"resource"`
	EntityID   models.ID `json:"entityId"`
	OccurredAt time.Time `json:"occurredAt"`
	RequestID  string    `json:"requestId,omitempty"`
}

// New builds an event stamped with the request clock and request id in ctx.
func New(ctx context.Context, typ Type, resource string, id models.ID) Event {
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		Resource:   resource,
		EntityID:   id,
		OccurredAt: requestcontext.Now(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	}
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to a structured logger. It is the default sink
// when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "resource event",
		"event_id", event.ID.String(),
		"type", string(event.Type),
		"resource", event.Resource,
		"entity_id", event.EntityID.String(),
		"occurred_at", event.OccurredAt,
		"request_id", event.RequestID,
	)
	return nil
}
