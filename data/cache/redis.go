package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/utils"
)

const quoteKeyPrefix = "quote:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func quoteKey(stockID string) string {
	return quoteKeyPrefix + stockID
}

func (r *RedisCache) SetQuotes(ctx context.Context, quotes []model.StockQuote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetQuotes", slog.String("rqID", rqID), slog.Int("count", len(quotes)))

	pipe := r.redis.Pipeline()
	for _, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshal quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return errors.New("can't marshal quote")
		}

		pipe.Set(ctx, quoteKey(quote.StockID), quoteJson, r.cfg.Cache.QuotesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) SetQuote(ctx context.Context, quote model.StockQuote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetQuote", slog.String("rqID", rqID), slog.String("stockID", quote.StockID))

	quoteJson, err := json.Marshal(quote)
	if err != nil {
		slog.Error(
			"can't marshal quote in SetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("quote", quote),
		)
		return errors.New("can't marshal quote")
	}

	err = r.redis.Set(ctx, quoteKey(quote.StockID), quoteJson, r.cfg.Cache.QuotesExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("stockID", quote.StockID))
		return err
	}

	slog.Debug("SetQuote completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, stockID string) (model.StockQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKey(stockID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("stockID", stockID))
		}
		return model.StockQuote{}, err
	}

	quote := model.StockQuote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshal quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.StockQuote{}, errors.New("can't unmarshal quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}
