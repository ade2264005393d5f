package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opterra/internal/model"
	"github.com/sells-group/opterra/internal/resilience"
)

// EventType identifies a webhook event.
type EventType string

const (
	EventLeadCreated EventType = "lead.created"
	EventReminderDue EventType = "reminder.due"
)

// Event is the webhook payload.
type Event struct {
	Type      EventType       `json:"type"`
	Lead      *model.Lead     `json:"lead,omitempty"`
	Reminder  *model.Reminder `json:"reminder,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Webhook posts events as JSON to a URL.
type Webhook struct {
	url    string
	client *http.Client
	retry  resilience.RetryConfig
}

// NewWebhook returns a Webhook for url.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	rc := resilience.DefaultRetryConfig()
	rc.InitialBackoff = 250 * time.Millisecond
	rc.OnRetry = resilience.RetryLogger("notify", "webhook")
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		retry:  rc,
	}
}

// Send posts one event, retrying rate limits and server errors.
func (w *Webhook) Send(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "notify: marshal event")
	}
	return resilience.Do(ctx, w.retry, func(ctx context.Context) error {
		return w.post(ctx, payload)
	})
}

func (w *Webhook) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return resilience.HTTPStatusError("notify: webhook", resp.StatusCode, "")
	}
	return nil
}
