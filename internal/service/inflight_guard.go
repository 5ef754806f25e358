package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vtx-referral/internal/cache"
	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/logger"

	"github.com/google/uuid"
)

const defaultGuardTTL = 30 * time.Second

// InflightGuard 按键防止同一操作并发重入
// 进程内用 map 互斥，启用 Redis 时额外抢占分布式锁
type InflightGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
	ttl  time.Duration
}

// NewInflightGuard 创建重入保护
func NewInflightGuard(ttl time.Duration) *InflightGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &InflightGuard{held: make(map[string]struct{}), ttl: ttl}
}

// Acquire 抢占 key，成功时返回释放函数
func (g *InflightGuard) Acquire(ctx context.Context, key string) (func(), bool) {
	key = strings.TrimSpace(key)
	if g == nil || key == "" {
		return func() {}, true
	}

	g.mu.Lock()
	if _, busy := g.held[key]; busy {
		g.mu.Unlock()
		return nil, false
	}
	g.held[key] = struct{}{}
	g.mu.Unlock()

	releaseLocal := func() {
		g.mu.Lock()
		delete(g.held, key)
		g.mu.Unlock()
	}

	if !cache.Enabled() {
		return releaseLocal, true
	}

	lockKey := constants.CacheKeyGuardPrefix + key
	token := uuid.NewString()
	locked, err := cache.TryLock(ctx, lockKey, token, g.ttl)
	if err != nil {
		logger.Warnw("inflight_guard_lock_failed", "key", key, "error", err)
		return releaseLocal, true
	}
	if !locked {
		releaseLocal()
		return nil, false
	}
	return func() {
		if err := cache.Unlock(context.Background(), lockKey, token); err != nil {
			logger.Warnw("inflight_guard_unlock_failed", "key", key, "error", err)
		}
		releaseLocal()
	}, true
}
