package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pkgredis "github.com/carbonex30/scheduler/pkg/redis"
)

// Locker 任务互斥锁：同一排班表 / 同一模型类型同时只允许一个任务
type Locker interface {
	// TryLock 非阻塞加锁；ok=false 表示已被占用
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// ── Redis 分布式锁（多实例部署） ──

type redisLocker struct {
	client *pkgredis.Client
	logger *zap.Logger
}

// NewRedisLocker 基于 Redis SET NX 的锁
func NewRedisLocker(client *pkgredis.Client, logger *zap.Logger) Locker {
	return &redisLocker{client: client, logger: logger}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.AcquireLock(ctx, key, token, ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func() {
		// 任务的 ctx 可能已取消，释放锁用独立 ctx
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := l.client.ReleaseLock(releaseCtx, key, token); err != nil {
			l.logger.Warn("释放任务锁失败，等待 TTL 过期", zap.String("key", key), zap.Error(err))
		}
	}
	return unlock, true, nil
}

// ── 进程内锁（单实例 / 未配置 Redis） ──

type localLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewLocalLocker 进程内锁，过期时间语义与 Redis 锁一致
func NewLocalLocker() Locker {
	return &localLocker{held: make(map[string]time.Time)}
}

func (l *localLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if exp, ok := l.held[key]; ok && (ttl <= 0 || now.Before(exp)) {
		return nil, false, nil
	}
	exp := now.Add(ttl)
	l.held[key] = exp

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// 已过期并被他人重新持有时不误删
			if cur, ok := l.held[key]; ok && cur.Equal(exp) {
				delete(l.held, key)
			}
		})
	}
	return unlock, true, nil
}
