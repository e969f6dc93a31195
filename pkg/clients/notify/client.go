// Package notify is a thin HTTP client for the external notification
// dispatcher. Deliveries are always fire-and-forget from the caller's point of
// view; a failed post is the dispatcher's problem to log, never the
// operation's.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paddocklabs/studbook/internal/config"
	"github.com/paddocklabs/studbook/internal/domain/models"
)

// Client exposes the notification operations used by the effect dispatcher.
type Client interface {
	SendEvent(ctx context.Context, effect models.Effect) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a notification API client from configuration.
func NewClient(cfg config.NotifyConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &APIClient{httpClient: restyClient}
}

// apiError mirrors the dispatcher's error payload.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendEvent posts a notification event to the dispatcher.
func (c *APIClient) SendEvent(ctx context.Context, effect models.Effect) error {
	payload := map[string]any{
		"id":          effect.ID,
		"tenant_id":   effect.TenantID,
		"event":       effect.Event,
		"subject":     effect.Subject,
		"payload":     effect.Payload,
		"occurred_at": effect.OccurredAt,
	}

	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(apiErr).
		Post("/events")
	if err != nil {
		return fmt.Errorf("send notification event: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error.Message
		code := resp.StatusCode()
		if apiErr.Error.Code != 0 {
			code = apiErr.Error.Code
		}
		return fmt.Errorf("notification api error: code=%d, message=%s", code, message)
	}
	return nil
}
