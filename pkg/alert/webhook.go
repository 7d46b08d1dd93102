package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type webhookNotifier struct {
	h   *http.Client
	url string
}

// NewWebhookNotifier POSTs every alert as JSON to url. Delivery failures are
// logged and otherwise ignored.
func NewWebhookNotifier(h *http.Client, url string) *webhookNotifier {
	return &webhookNotifier{h: h, url: url}
}

func (n *webhookNotifier) Fire(ctx context.Context, a Alert) {
	if a.ConfirmText == "" {
		a.ConfirmText = DefaultConfirmText
	}

	if err := n.send(ctx, a); err != nil {
		slog.ErrorContext(ctx, "deliver alert", "error", err.Error(), "alert.title", a.Title)
	}
}

func (n *webhookNotifier) Recover(ctx context.Context) {
	if r := recover(); r != nil {
		n.Fire(ctx, Alert{
			Title:    fmt.Sprintf("Recovered from panic: %v", r),
			Text:     getCallstack(),
			Severity: SeverityError,
		})
	}
}

func (n *webhookNotifier) send(ctx context.Context, a Alert) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	// Detached from the caller's cancellation, bounded by its own timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(b))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.h.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		responseBody := &bytes.Buffer{}
		_, _ = responseBody.ReadFrom(resp.Body)
		return fmt.Errorf("unexpected response: (%d) %s", resp.StatusCode, responseBody.String())
	}

	return nil
}
