// Package notifier publishes account and trade events to an external
// channel. The driver is picked by config: redis pub/sub, an HTTP
// webhook, or a no-op when notifications are switched off.
package notifier

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockerhq/stocker/config"
)

const (
	TopicUserAccounts = "stocker.user-accounts"
	TopicTransactions = "stocker.transactions"
)

const (
	EventLogin           = "LOGIN"
	EventAccountCreation = "ACCOUNT_CREATION"
	EventBuy             = "BUY"
	EventSell            = "SELL"
)

type Event struct {
	Subject     string            `json:"subject"`
	Message     string            `json:"message"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

type Notifier interface {
	Publish(ctx context.Context, topic string, event Event) error
}

func New(cfg *config.Config, redisClient *redis.Client) Notifier {
	switch cfg.Notifier.Driver {
	case "redis":
		return NewRedisNotifier(redisClient)
	case "webhook":
		return NewWebhookNotifier(cfg)
	default:
		return NewNopNotifier()
	}
}
