package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockerhq/stocker/utils"
)

type RedisNotifier struct {
	redis *redis.Client
}

func NewRedisNotifier(redisClient *redis.Client) *RedisNotifier {
	return &RedisNotifier{redis: redisClient}
}

func (n *RedisNotifier) Publish(ctx context.Context, topic string, event Event) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start RedisNotifier.Publish", slog.String("rqID", rqID), slog.String("topic", topic))

	if event.PublishedAt.IsZero() {
		event.PublishedAt = time.Now().UTC()
	}

	eventJson, err := json.Marshal(event)
	if err != nil {
		slog.Error(
			"can't marshal event in Publish",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("event", event),
		)
		return errors.New("can't marshal event")
	}

	err = n.redis.Publish(ctx, topic, eventJson).Err()
	if err != nil {
		slog.Error("failed on redis.Publish", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("topic", topic))
		return err
	}

	slog.Debug("RedisNotifier.Publish completed", slog.String("rqID", rqID))

	return nil
}
