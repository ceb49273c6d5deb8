// Package slack posts failure alerts to a Slack incoming webhook.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

var _ driven.Notifier = (*Notifier)(nil)

// Notifier delivers alert events through a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	channel    string
}

// New creates a webhook notifier. channel overrides the webhook's default
// destination when set.
func New(webhookURL, channel string) (*Notifier, error) {
	if webhookURL == "" {
		return nil, domain.Fatal(fmt.Errorf("%w: slack webhook url is required", domain.ErrInvalidInput))
	}
	return &Notifier{webhookURL: webhookURL, channel: channel}, nil
}

// Notify posts the alert as a single webhook message.
func (n *Notifier) Notify(ctx context.Context, event domain.AlertEvent) error {
	msg := &slackapi.WebhookMessage{
		Channel:  n.channel,
		Username: "ingestd",
		Text:     formatAlert(event),
	}
	if err := slackapi.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}

func formatAlert(event domain.AlertEvent) string {
	return fmt.Sprintf(":rotating_light: source %s has failed %d times in a row\nlast error: %s\nat: %s",
		event.SourceID, event.ConsecutiveFailures, event.LastError,
		event.At.Format("2006-01-02 15:04:05 MST"))
}
