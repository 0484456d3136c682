package alert

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{client: newClient(), webhookURL: webhookURL}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var others []string
	for _, l := range n.Listings {
		others = append(others, fmt.Sprintf("• %.2f %s", l.Score, l.Address))
	}

	desc := fmt.Sprintf("**Score:** %.2f\n%s", n.Score, n.Body)
	if len(others) > 0 {
		desc += "\n\n" + strings.Join(others, "\n")
	}
	embed := map[string]any{
		"title":       n.Title,
		"description": desc,
		"color":       0x2E8B57,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if n.URL != "" {
		embed["url"] = n.URL
	}

	return postJSON(ctx, d.client, "discord webhook", d.webhookURL, map[string]any{"embeds": []map[string]any{embed}}, nil)
}
