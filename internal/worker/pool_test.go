package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(2, zap.NewNop())

	var cur, peak int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		key := string(rune('a' + i))
		require.NoError(t, p.Submit(key, func(ctx context.Context) {
			defer wg.Done()
			n := atomic.AddInt32(&cur, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&cur, -1)
		}))
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&cur), "同时运行的任务数应等于并发上限")
	close(release)
	wg.Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestPool_Cancel(t *testing.T) {
	p := NewPool(1, zap.NewNop())

	started := make(chan struct{})
	done := make(chan error, 1)
	require.NoError(t, p.Submit("schedule:1", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		done <- ctx.Err()
	}))
	<-started

	assert.True(t, p.Cancel("schedule:1"))
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("任务未响应取消")
	}
	assert.False(t, p.Cancel("schedule:unknown"))
}

// 排队中的任务被取消后仍会以已取消的 ctx 执行一次
func TestPool_CancelWhileQueued(t *testing.T) {
	p := NewPool(1, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit("first", func(ctx context.Context) {
		close(started)
		<-release
	}))
	// first 已占住唯一的并发名额，second 只能排队
	<-started

	ran := make(chan error, 1)
	require.NoError(t, p.Submit("second", func(ctx context.Context) { ran <- ctx.Err() }))
	assert.True(t, p.Cancel("second"))

	select {
	case err := <-ran:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("排队任务未执行")
	}
	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_Shutdown(t *testing.T) {
	p := NewPool(2, zap.NewNop())

	var finished int32
	for _, key := range []string{"a", "b"} {
		require.NoError(t, p.Submit(key, func(ctx context.Context) {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&finished, 1)
		}))
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&finished), "Shutdown 应等待已提交任务")
	assert.Equal(t, 0, p.Running())

	err := p.Submit("c", func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_ShutdownTimeoutCancelsJobs(t *testing.T) {
	p := NewPool(1, zap.NewNop())

	cancelled := make(chan struct{})
	require.NoError(t, p.Submit("long", func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	<-cancelled
}

func TestPool_RecoversPanicWhileQueued(t *testing.T) {
	p := NewPool(1, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit("holder", func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	ran := make(chan struct{})
	require.NoError(t, p.Submit("queued", func(ctx context.Context) {
		close(ran)
		panic("queued boom")
	}))
	require.True(t, p.Cancel("queued"))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("排队任务未执行")
	}
	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, 0, p.Running())
}

func TestPool_RecoversPanic(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	require.NoError(t, p.Submit("boom", func(ctx context.Context) { panic("boom") }))

	ok := make(chan struct{})
	require.NoError(t, p.Submit("after", func(ctx context.Context) { close(ok) }))
	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("panic 后信号量未释放")
	}
}
