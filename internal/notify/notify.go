package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrDeliveryFailure marks a per-channel send failure. One channel failing
// never suppresses delivery on the others and never fails the pipeline run.
var ErrDeliveryFailure = errors.New("notification delivery failed")

// Channel delivers a formatted report through one push provider.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string
	// Send delivers the report. Failures wrap ErrDeliveryFailure.
	Send(ctx context.Context, title, body string) error
}

// Result records one channel's delivery outcome.
type Result struct {
	Channel string
	Err     error
}

// SendAll delivers the report on every channel independently, logging each
// failure and returning all per-channel results. Zero channels is valid.
func SendAll(ctx context.Context, channels []Channel, title, body string, logger *slog.Logger) []Result {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]Result, 0, len(channels))
	for _, ch := range channels {
		err := ch.Send(ctx, title, body)
		if err != nil {
			logger.Warn("notification failed", "channel", ch.Name(), "error", err)
		} else {
			logger.Info("notification sent", "channel", ch.Name())
		}
		results = append(results, Result{Channel: ch.Name(), Err: err})
	}
	return results
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// checkResponse drains and validates a webhook response.
func checkResponse(channel string, resp *http.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeliveryFailure, channel, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %s: %s", ErrDeliveryFailure, channel, resp.Status, string(body))
	}
	return nil
}
