// Package notify delivers notifications to an HTTP webhook.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/queue"
)

// Webhook posts notification events as JSON. 5xx responses and transport
// errors are retried up to three times.
type Webhook struct {
	client *resty.Client
	url    string
	log    *zap.Logger
}

var _ queue.Sender = (*Webhook)(nil)

// payload is the body sent to the webhook.
type payload struct {
	ID      uint64    `json:"id"`
	UserID  uint64    `json:"user_id"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	Created time.Time `json:"created_at"`
}

// NewWebhook returns a Webhook posting to url. token, when set, is sent as
// a bearer token.
func NewWebhook(url, token string, log *zap.Logger) *Webhook {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Webhook{client: client, url: url, log: log}
}

// Send delivers ev. Any non-2xx final response is an error.
func (w *Webhook) Send(ctx context.Context, ev queue.NotificationEvent) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", fmt.Sprintf("notification-%d", ev.NotificationID)).
		SetBody(payload{
			ID:      ev.NotificationID,
			UserID:  ev.UserID,
			Subject: ev.Subject,
			Message: ev.Message,
			Created: ev.CreatedAt,
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post notification %d: %w", ev.NotificationID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("post notification %d: webhook returned %s", ev.NotificationID, resp.Status())
	}
	w.log.Debug("notification delivered",
		zap.Uint64("notification_id", ev.NotificationID),
		zap.Int("attempts", resp.Request.Attempt),
	)
	return nil
}
