package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/power-monitor/internal/repository"
	"github.com/d60-Lab/power-monitor/pkg/logger"
)

const snapshotCacheKey = "power-monitor:subscriptions:snapshot"

// SnapshotCache 订阅快照的 cache-aside 缓存。缓存故障一律降级为直读库，
// 不影响周期执行
type SnapshotCache struct {
	repo  repository.SubscriptionRepository
	cache *redis.Client
	ttl   time.Duration
}

// NewSnapshotCache cache 传 nil 时等价于直读库
func NewSnapshotCache(repo repository.SubscriptionRepository, cache *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{repo: repo, cache: cache, ttl: ttl}
}

func (s *SnapshotCache) Snapshot(ctx context.Context) ([]repository.SubscriberEntry, error) {
	if s.cache == nil {
		return s.repo.Snapshot(ctx)
	}

	if data, err := s.cache.Get(ctx, snapshotCacheKey).Bytes(); err == nil {
		var entries []repository.SubscriberEntry
		if uErr := json.Unmarshal(data, &entries); uErr == nil {
			return entries, nil
		}
	}

	entries, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(entries); err == nil {
		if err := s.cache.Set(ctx, snapshotCacheKey, payload, s.ttl).Err(); err != nil {
			logger.Warn("snapshot cache set failed", zap.Error(err))
		}
	}
	return entries, nil
}

// Invalidate 订阅变更后由外部调用方清除缓存
func (s *SnapshotCache) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, snapshotCacheKey).Err()
}
