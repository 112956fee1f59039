package notify

import (
	"context"
	"time"
)

// Event es una notificación post-mutación.
// Best-effort: si el envío falla, la mutación NO falla.
type Event struct {
	Type       string // "cattle.created", "kraal.updated", etc.
	EntityKind string
	EntityID   string
	UserID     string
	OccurredAt time.Time
}

type Notifier interface {
	Send(ctx context.Context, e Event) error
}
