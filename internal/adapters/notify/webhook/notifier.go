package webhook

import (
	"context"
	"net/http"
	"strings"
	"time"

	"livestock-registry/internal/platform/httpclient"
	"livestock-registry/internal/platform/logger"
	"livestock-registry/internal/ports/notify"
)

// Notifier manda eventos de mutación como POST JSON a un webhook.
// Best-effort por contrato: los services ignoran el error; acá solo
// se loguea para diagnóstico.
type Notifier struct {
	http *httpclient.Client
	url  string
	log  logger.Logger
}

type Config struct {
	URL     string
	Timeout time.Duration
}

func New(cfg Config, log logger.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		http: httpclient.New(timeout),
		url:  strings.TrimSpace(cfg.URL),
		log:  log,
	}
}

type payload struct {
	Type       string    `json:"type"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (n *Notifier) Send(ctx context.Context, e notify.Event) error {
	if n == nil || n.url == "" {
		return nil
	}

	err := n.http.DoJSON(ctx, http.MethodPost, n.url, nil, payload{
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		UserID:     e.UserID,
		OccurredAt: e.OccurredAt,
	}, nil)
	if err != nil && n.log != nil {
		n.log.Warn("webhook notify failed", map[string]any{
			"type":      e.Type,
			"entity_id": e.EntityID,
			"error":     err.Error(),
		})
	}
	return err
}
