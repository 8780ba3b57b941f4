package service

import (
	"context"
	"testing"
	"time"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "schedule:1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("首次加锁应成功: %v", err)
	}
	if _, ok, _ := l.TryLock(ctx, "schedule:1", time.Minute); ok {
		t.Error("重复加锁应失败")
	}
	if _, ok, _ := l.TryLock(ctx, "schedule:2", time.Minute); !ok {
		t.Error("不同 key 应互不影响")
	}

	unlock()
	unlock() // 重复释放无副作用
	if _, ok, _ := l.TryLock(ctx, "schedule:1", time.Minute); !ok {
		t.Error("释放后应可重新加锁")
	}
}

func TestLocalLocker_Expiry(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	stale, ok, _ := l.TryLock(ctx, "training:preference_predictor", 10*time.Millisecond)
	if !ok {
		t.Fatal("首次加锁应成功")
	}
	time.Sleep(20 * time.Millisecond)

	_, ok, _ = l.TryLock(ctx, "training:preference_predictor", time.Minute)
	if !ok {
		t.Fatal("过期后应可重新加锁")
	}
	// 过期持有者释放时不能删除新锁
	stale()
	if _, ok, _ := l.TryLock(ctx, "training:preference_predictor", time.Minute); ok {
		t.Error("过期持有者不应释放新持有者的锁")
	}
}
