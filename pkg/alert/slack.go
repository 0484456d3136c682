package alert

import (
	"context"
	"fmt"
	"net/http"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{client: newClient(), webhookURL: webhookURL}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	headline := n.Title
	if n.URL != "" {
		headline = fmt.Sprintf("<%s|%s>", n.URL, n.Title)
	}
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": n.Title},
		},
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Score:* %.2f\n%s\n%s", n.Score, n.Body, headline),
			},
		},
	}

	if len(n.Listings) > 0 {
		var elements []map[string]any
		for _, l := range n.Listings {
			elements = append(elements, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("%.2f  %s", l.Score, l.Address),
			})
		}
		blocks = append(blocks, map[string]any{"type": "context", "elements": elements})
	}

	return postJSON(ctx, s.client, "slack webhook", s.webhookURL, map[string]any{"text": n.Title, "blocks": blocks}, nil)
}
