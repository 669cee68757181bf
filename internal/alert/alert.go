// Package alert delivers the newly-broken digest to a webhook sink. Alerting
// is best effort: a failed delivery never fails the run.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/linkhound/internal/logger"
)

// maxDigestItems caps the number of links listed in one digest message.
const maxDigestItems = 20

// defaultTimeout bounds the webhook delivery.
const defaultTimeout = 15 * time.Second

// NewlyBroken is one link that transitioned into Broken this run.
type NewlyBroken struct {
	PageTitle string
	PageURL   string
	LinkURL   string
}

// Line renders the item as one digest bullet.
func (n NewlyBroken) Line() string {
	return fmt.Sprintf("• %s (%s) -> %s", n.PageTitle, n.PageURL, n.LinkURL)
}

// Notifier delivers a newly-broken digest.
type Notifier interface {
	Notify(ctx context.Context, items []NewlyBroken) error
}

// Digest renders the alert message: a header, up to maxDigestItems bullets,
// and an overflow line when the list was truncated.
func Digest(items []NewlyBroken) string {
	msg := "⚠️ Link health crawl: newly broken links\n"

	shown := items
	if len(shown) > maxDigestItems {
		shown = shown[:maxDigestItems]
	}

	for i, item := range shown {
		if i > 0 {
			msg += "\n"
		}
		msg += item.Line()
	}

	if len(items) > maxDigestItems {
		msg += fmt.Sprintf("\n… and %d more.", len(items)-maxDigestItems)
	}

	return msg
}

// SlackNotifier posts the digest to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	log        logger.Interface
}

// NewSlackNotifier creates a SlackNotifier. An empty webhook URL disables
// delivery.
func NewSlackNotifier(webhookURL string, log logger.Interface) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: defaultTimeout},
		log:        log.WithComponent("alert"),
	}
}

// Notify posts the digest. Empty item lists and unconfigured webhooks are
// silent no-ops.
func (s *SlackNotifier) Notify(ctx context.Context, items []NewlyBroken) error {
	if len(items) == 0 || s.webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"text":   Digest(items),
		"mrkdwn": true,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new alert request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, doErr := s.client.Do(req)
	if doErr != nil {
		return fmt.Errorf("deliver alert: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("deliver alert: webhook status %d", resp.StatusCode)
	}

	s.log.Info("newly broken digest delivered", "items", len(items))

	return nil
}
