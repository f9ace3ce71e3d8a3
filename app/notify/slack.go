package notify

import (
	"context"

	"github.com/slack-go/slack"
)

type Slack struct {
	webhookURL string
	post       func(url string, msg *slack.WebhookMessage) error
}

func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		post:       slack.PostWebhook,
	}
}

func (s *Slack) Notify(ctx context.Context, message string) error {
	return withRetry(ctx, "slack", func() error {
		return s.post(s.webhookURL, &slack.WebhookMessage{Text: message})
	})
}
