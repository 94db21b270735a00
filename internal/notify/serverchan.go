package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const serverChanBaseURL = "https://sctapi.ftqq.com"

// ServerChan pushes through the ServerChan WeChat relay.
type ServerChan struct {
	Key     string
	BaseURL string // overridable for tests
	client  *http.Client
}

func NewServerChan(key string) *ServerChan {
	return &ServerChan{Key: key, BaseURL: serverChanBaseURL, client: newHTTPClient()}
}

func (s *ServerChan) Name() string { return "serverchan" }

func (s *ServerChan) Send(ctx context.Context, title, body string) error {
	form := url.Values{}
	form.Set("title", title)
	form.Set("desp", body)

	endpoint := fmt.Sprintf("%s/%s.send", strings.TrimRight(s.BaseURL, "/"), s.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: serverchan: %v", ErrDeliveryFailure, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	return checkResponse(s.Name(), resp, err)
}
