package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatWorker/worker/models"
)

const resultKeyPrefix = "task:result:"

var ErrCacheMiss = errors.New("cache miss")

// ResultCache keeps completed task results close to the dispatcher. It only
// ever holds done records; the task table stays authoritative.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedResult struct {
	Result    string    `json:"result"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) Get(ctx context.Context, key models.TaskKey) (*models.TaskRecord, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}

	return &models.TaskRecord{
		Key:       key,
		Status:    models.StatusDone,
		Result:    &cached.Result,
		UpdatedAt: cached.UpdatedAt,
	}, nil
}

func (c *ResultCache) Set(ctx context.Context, record *models.TaskRecord) error {
	if record == nil || record.Status != models.StatusDone || record.Result == nil {
		return nil
	}

	data, err := json.Marshal(cachedResult{
		Result:    *record.Result,
		UpdatedAt: record.UpdatedAt,
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, cacheKey(record.Key), data, c.ttl).Err()
}

func (c *ResultCache) Delete(ctx context.Context, key models.TaskKey) error {
	return c.client.Del(ctx, cacheKey(key)).Err()
}

func cacheKey(key models.TaskKey) string {
	return fmt.Sprintf("%s%s:%s:%s", resultKeyPrefix, key.Kind, key.Language, key.MessageID)
}
