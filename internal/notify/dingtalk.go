package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// DingTalk pushes markdown messages to a DingTalk group robot webhook.
type DingTalk struct {
	WebhookURL string
	client     *http.Client
}

func NewDingTalk(webhookURL string) *DingTalk {
	return &DingTalk{WebhookURL: webhookURL, client: newHTTPClient()}
}

func (d *DingTalk) Name() string { return "dingtalk" }

func (d *DingTalk) Send(ctx context.Context, title, body string) error {
	payload := map[string]any{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  fmt.Sprintf("### %s\n\n%s", title, body),
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: dingtalk: %v", ErrDeliveryFailure, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("%w: dingtalk: %v", ErrDeliveryFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	return checkResponse(d.Name(), resp, err)
}
