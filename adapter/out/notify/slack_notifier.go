// Package notify implements the alert port as a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/port/out"
	"github.com/weapplyse/weapply-pm/pkg/apperr"
	"github.com/weapplyse/weapply-pm/pkg/httputil"
)

// SlackNotifier posts urgent triage outcomes to a Slack channel.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

var _ out.Notifier = (*SlackNotifier)(nil)

// NewSlackNotifier creates the notifier for the given incoming-webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     httputil.WebhookClient(),
	}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts the alert. Anything below the urgent tier is a no-op.
func (n *SlackNotifier) Notify(ctx context.Context, alert *out.Alert) error {
	if alert.Priority != domain.PriorityUrgent {
		return nil
	}

	header := fmt.Sprintf(":rotating_light: Urgent: %s", alert.Title)
	if alert.Identifier != "" {
		header = fmt.Sprintf(":rotating_light: Urgent %s: %s", alert.Identifier, alert.Title)
	}

	body := fmt.Sprintf("*From:* %s", alert.Sender)
	if alert.ClientLabel != "" {
		body += fmt.Sprintf("\n*Client:* %s", alert.ClientLabel)
	}
	if alert.Summary != "" {
		body += "\n" + alert.Summary
	}
	if alert.URL != "" {
		body += fmt.Sprintf("\n<%s|Open ticket>", alert.URL)
	}

	msg := slackMessage{
		Text: header,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: body}},
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return apperr.ExternalError("slack", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return apperr.ExternalError("slack", fmt.Errorf("webhook returned %d: %s", resp.StatusCode, data))
	}
	return nil
}
