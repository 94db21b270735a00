package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WeChatWork pushes markdown messages to an enterprise WeChat group webhook.
type WeChatWork struct {
	WebhookURL string
	client     *http.Client
}

func NewWeChatWork(webhookURL string) *WeChatWork {
	return &WeChatWork{WebhookURL: webhookURL, client: newHTTPClient()}
}

func (w *WeChatWork) Name() string { return "wechat_work" }

func (w *WeChatWork) Send(ctx context.Context, title, body string) error {
	payload := map[string]any{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"content": fmt.Sprintf("## %s\n\n%s", title, body),
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: wechat_work: %v", ErrDeliveryFailure, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.WebhookURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("%w: wechat_work: %v", ErrDeliveryFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	return checkResponse(w.Name(), resp, err)
}
