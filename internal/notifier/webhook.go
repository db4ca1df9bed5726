package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/utils"
)

type webhookPayload struct {
	Topic string `json:"topic"`
	Event Event  `json:"event"`
}

type WebhookNotifier struct {
	client *resty.Client
}

func NewWebhookNotifier(cfg *config.Config) *WebhookNotifier {
	client := resty.New().
		SetTimeout(cfg.Notifier.WebhookTimeout).
		SetBaseURL(cfg.Notifier.WebhookURL)
	return &WebhookNotifier{client: client}
}

func (n *WebhookNotifier) Publish(ctx context.Context, topic string, event Event) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start WebhookNotifier.Publish request", slog.String("rqID", rqID), slog.String("topic", topic))

	if event.PublishedAt.IsZero() {
		event.PublishedAt = time.Now().UTC()
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookPayload{Topic: topic, Event: event}).
		Post("")

	if err != nil {
		slog.Error("error while dialing webhook", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return err
	}

	if resp.IsError() {
		slog.Error(
			"webhook returned error status",
			slog.String("rqID", rqID),
			slog.Int("status", resp.StatusCode()),
			slog.String("body", resp.String()),
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	slog.Debug("WebhookNotifier.Publish request complete", slog.String("rqID", rqID))

	return nil
}
