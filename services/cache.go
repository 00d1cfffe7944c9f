package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"ratingsite/models"
)

const (
	FRIENDS_CACHE_TTL   = 10 * time.Minute
	FRIENDS_KEY_PREFIX  = "mutual_friends:"
	redisConnectTimeout = 5 * time.Second
)

// FriendCache - кеш списков взаимных друзей.
// Ошибки кеша не ломают запрос: промах просто идет в БД.
type FriendCache interface {
	Get(ctx context.Context, userID int64) ([]models.PublicUser, bool)
	Set(ctx context.Context, userID int64, friends []models.PublicUser)
	Invalidate(ctx context.Context, userIDs ...int64)
}

type RedisFriendCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisClient подключается к redis и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, dbIndex int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisFriendCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisFriendCache {
	if ttl <= 0 {
		ttl = FRIENDS_CACHE_TTL
	}
	return &RedisFriendCache{client: client, ttl: ttl, log: log}
}

func friendsKey(userID int64) string {
	return fmt.Sprintf("%s%d", FRIENDS_KEY_PREFIX, userID)
}

func (c *RedisFriendCache) Get(ctx context.Context, userID int64) ([]models.PublicUser, bool) {
	data, err := c.client.Get(ctx, friendsKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("friends cache get failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	var friends []models.PublicUser
	if err = json.Unmarshal(data, &friends); err != nil {
		c.log.Warn("friends cache entry is corrupted", zap.Int64("user_id", userID), zap.Error(err))
		return nil, false
	}
	return friends, true
}

func (c *RedisFriendCache) Set(ctx context.Context, userID int64, friends []models.PublicUser) {
	data, err := json.Marshal(friends)
	if err != nil {
		return
	}
	if err = c.client.Set(ctx, friendsKey(userID), data, c.ttl).Err(); err != nil {
		c.log.Warn("friends cache set failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (c *RedisFriendCache) Invalidate(ctx context.Context, userIDs ...int64) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, friendsKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("friends cache invalidate failed", zap.Int64s("user_ids", userIDs), zap.Error(err))
	}
}
