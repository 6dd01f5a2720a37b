package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bruadam/hvx-sub006/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss 表示缓存不存在
var ErrCacheMiss = errors.New("cache miss")

// KVStore 抽象的 KV 存储（用于在单元测试中替换 Redis）
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// StreamPublisher 抽象的事件流发布（用于在单元测试中替换 Redis Streams）
type StreamPublisher interface {
	Publish(ctx context.Context, stream string, values map[string]any) (string, error)
}

// RedisKVStore 基于 go-redis 的 KV 实现
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// RedisStreamPublisher 基于 Redis Streams (XADD) 的事件发布
type RedisStreamPublisher struct {
	client *redis.Client
}

func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client}
}

func (r *RedisStreamPublisher) Publish(ctx context.Context, stream string, values map[string]any) (string, error) {
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
}

// ResultsCache 分析结果缓存
// 把实体汇总载荷写入 KV（带 TTL），并向下游发布运行完成事件
// 缓存是短期的：持久化由调用方负责，引擎不落库
type ResultsCache struct {
	kv        KVStore
	publisher StreamPublisher
	prefix    string
	ttl       time.Duration
	stream    string
	logger    *zap.Logger
}

// NewResultsCache 创建结果缓存
func NewResultsCache(kv KVStore, publisher StreamPublisher, prefix, stream string, ttl time.Duration, logger *zap.Logger) *ResultsCache {
	return &ResultsCache{
		kv:        kv,
		publisher: publisher,
		prefix:    prefix,
		ttl:       ttl,
		stream:    stream,
		logger:    logger,
	}
}

// StoreSummary 缓存实体汇总载荷
func (c *ResultsCache) StoreSummary(ctx context.Context, entityID string, summary *domain.SummaryResults) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	key := c.summaryKey(entityID)
	if err := c.kv.Set(ctx, key, string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to cache summary for %s: %w", entityID, err)
	}
	return nil
}

// GetSummary 读取实体汇总载荷；不存在时返回 ErrCacheMiss
func (c *ResultsCache) GetSummary(ctx context.Context, entityID string) (*domain.SummaryResults, error) {
	val, err := c.kv.Get(ctx, c.summaryKey(entityID))
	if err != nil {
		return nil, err
	}
	var summary domain.SummaryResults
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}
	return &summary, nil
}

// PublishRunCompleted 发布运行完成事件到 Redis Stream
func (c *ResultsCache) PublishRunCompleted(ctx context.Context, runID string, entityCount, failedCount int) error {
	id, err := c.publisher.Publish(ctx, c.stream, map[string]any{
		"run_id":       runID,
		"entity_count": entityCount,
		"failed_count": failedCount,
		"timestamp":    time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	c.logger.Info("Run completed event published",
		zap.String("run_id", runID),
		zap.String("stream_id", id),
	)
	return nil
}

func (c *ResultsCache) summaryKey(entityID string) string {
	return c.prefix + entityID + ":summary"
}
