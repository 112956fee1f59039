package sentinel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"livestock-registry/internal/platform/httpclient"
	"livestock-registry/internal/ports/permissions"
)

var (
	ErrSentinelNotConfigured = errors.New("sentinel client not configured")
	ErrSentinelUpstream      = errors.New("sentinel upstream error")
)

// Config del cliente Sentinel (servicio de permisos de la plataforma).
type Config struct {
	BaseURL string
	APIKey  string

	APIKeyHeader string
	Timeout      time.Duration
}

// Authorizer implementa permissions.Authorizer contra Sentinel.
// El core confía en la respuesta; deny-by-default ante upstream caído.
type Authorizer struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func New(cfg Config) (*Authorizer, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}

	hc, err := httpclient.NewWithBaseURL(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return &Authorizer{
		http:         hc,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
	}, nil
}

func (a *Authorizer) IsConfigured() bool {
	return a != nil && a.http != nil && a.http.BaseURL != "" && a.apiKey != ""
}

type checkRequest struct {
	UserID      string `json:"user_id"`
	TenantID    string `json:"tenant_id,omitempty"`
	Action      string `json:"action"`
	Resource    string `json:"resource"`
	ResourceID  string `json:"resource_id"`
	OwnerUserID string `json:"owner_user_id"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (a *Authorizer) Can(ctx context.Context, in permissions.Check) (bool, error) {
	if !a.IsConfigured() {
		return false, ErrSentinelNotConfigured
	}

	var out checkResponse
	err := a.http.DoJSON(ctx, http.MethodPost, "/v1/permissions/check",
		map[string]string{a.apiKeyHeader: a.apiKey},
		checkRequest{
			UserID:      in.UserID,
			TenantID:    in.TenantID,
			Action:      string(in.Action),
			Resource:    in.Resource,
			ResourceID:  in.ResourceID,
			OwnerUserID: in.OwnerUserID,
		},
		&out,
	)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return false, fmt.Errorf("%w: %v", ErrSentinelUpstream, err)
		}
		return false, err
	}

	return out.Allowed, nil
}
