package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/utils"
)

var ErrNotFound = errors.New("session not found")

const sessionKeyPrefix = "session:"

type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// CreateSession stores the session under a fresh opaque token and returns the token.
func (r *RedisSession) CreateSession(ctx context.Context, session model.Session) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start CreateSession", slog.String("rqID", rqID), slog.String("userID", session.UserID))

	sessionJson, err := json.Marshal(session)
	if err != nil {
		slog.Error(
			"can't marshal session in CreateSession",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
		)
		return "", errors.New("can't marshal session")
	}

	token := uuid.NewString()

	err = r.redis.Set(ctx, sessionKey(token), sessionJson, r.cfg.SessionExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("CreateSession completed", slog.String("rqID", rqID))

	return token, nil
}

func (r *RedisSession) GetSession(ctx context.Context, token string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetSession start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}

	session := model.Session{}
	err = json.Unmarshal([]byte(res), &session)
	if err != nil {
		slog.Error(
			"can't unmarshal session in GetSession",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.Session{}, errors.New("can't unmarshal session")
	}

	slog.Debug("GetSession finished", slog.String("rqID", rqID))

	return session, nil
}

// DeleteSession is idempotent, deleting an absent token is not an error.
func (r *RedisSession) DeleteSession(ctx context.Context, token string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start DeleteSession", slog.String("rqID", rqID))

	err := r.redis.Del(ctx, sessionKey(token)).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("DeleteSession completed", slog.String("rqID", rqID))

	return nil
}
