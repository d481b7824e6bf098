// Package push posts import notifications to a webhook.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// RequestTimeout bounds a single webhook call.
const RequestTimeout = 10 * time.Second

var (
	ErrInvalidURL = errors.New("invalid webhook url")
	ErrRejected   = errors.New("webhook rejected notification")
)

// Message is the JSON body posted to the webhook.
type Message struct {
	Event  string         `json:"event"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
	SentAt time.Time      `json:"sent_at"`
}

// Notifier posts messages to one webhook endpoint.
type Notifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewNotifier validates endpoint and returns a notifier for it.
func NewNotifier(endpoint string, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, endpoint)
	}
	return &Notifier{
		url:    u.String(),
		client: &http.Client{Timeout: RequestTimeout},
		logger: logger,
	}, nil
}

// WithClient replaces the HTTP client.
func (n *Notifier) WithClient(c *http.Client) *Notifier {
	n.client = c
	return n
}

// Send posts msg. Any non-2xx status is an error wrapping ErrRejected.
func (n *Notifier) Send(ctx context.Context, msg *Message) error {
	if msg.Body == "" {
		return errors.New("notification body is required")
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		n.logger.Warn("notification rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	n.logger.Info("notification sent", slog.String("event", msg.Event))
	return nil
}
