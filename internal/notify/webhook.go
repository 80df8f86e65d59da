package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

const (
	defaultRatePerSecond = 20
	defaultBurst         = 30
	requestTimeout       = 10 * time.Second
)

// WebhookNotifier posts messages to an external delivery endpoint as
// JSON. Outbound requests are rate limited so a reminder burst cannot
// flood the downstream service.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

type webhookPayload struct {
	To      string `json:"to"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewWebhookNotifier creates a notifier for the given endpoint.
// ratePerSecond and burst fall back to defaults when non-positive.
func NewWebhookNotifier(url string, ratePerSecond float64, burst int) *WebhookNotifier {
	if ratePerSecond <= 0 {
		ratePerSecond = defaultRatePerSecond
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, contact *model.Contact, subject, body string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return &SendError{Contact: contact.Email, Err: err}
	}

	payload, err := json.Marshal(webhookPayload{
		To:      contact.Email,
		Name:    contact.Name,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return &SendError{Contact: contact.Email, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return &SendError{Contact: contact.Email, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return &SendError{Contact: contact.Email, Err: err}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SendError{Contact: contact.Email, Err: fmt.Errorf("webhook returned %s", resp.Status)}
	}
	return nil
}
