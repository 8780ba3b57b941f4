package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed 执行器已关闭，不再接受新任务
var ErrPoolClosed = errors.New("worker pool is shutting down")

// Pool 有界后台任务执行器
//
// 同时运行的任务数由信号量限制，超出的任务排队等待。每个任务都有独立的
// ctx，可按 key 取消；Shutdown 停止接收新任务并等待已提交的任务结束。
type Pool struct {
	sem    *semaphore.Weighted
	logger *zap.Logger

	base       context.Context
	cancelBase context.CancelFunc

	mu      sync.Mutex
	closed  bool
	running map[string]*job
	wg      sync.WaitGroup
}

type job struct {
	cancel context.CancelFunc
}

// NewPool 创建并发上限为 concurrency 的执行器
func NewPool(concurrency int, logger *zap.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	base, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:        semaphore.NewWeighted(int64(concurrency)),
		logger:     logger,
		base:       base,
		cancelBase: cancel,
		running:    make(map[string]*job),
	}
}

// Submit 提交任务；同一 key 同时只应有一个任务（由调用方加锁保证）
func (p *Pool) Submit(key string, fn func(ctx context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	ctx, cancel := context.WithCancel(p.base)
	j := &job{cancel: cancel}
	p.running[key] = j
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		defer p.forget(key, j)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("后台任务 panic", zap.String("key", key), zap.Any("panic", r))
			}
		}()

		// 排队期间被取消也要执行 fn，由任务自身把状态落为 failed
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.logger.Info("任务在排队时被取消", zap.String("key", key))
			fn(ctx)
			return
		}
		defer p.sem.Release(1)
		fn(ctx)
	}()
	return nil
}

// Cancel 取消 key 对应的任务；任务不存在时返回 false
func (p *Pool) Cancel(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	j, ok := p.running[key]
	if ok {
		j.cancel()
	}
	return ok
}

// Running 当前已提交且未结束的任务数
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}

func (p *Pool) forget(key string, j *job) {
	j.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	// 同 key 的新任务可能已替换旧记录
	if cur, ok := p.running[key]; ok && cur == j {
		delete(p.running, key)
	}
}

// Shutdown 停止接收任务并等待运行中的任务；ctx 到期后取消剩余任务
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	n := len(p.running)
	p.mu.Unlock()

	if n > 0 {
		p.logger.Info("等待后台任务结束", zap.Int("running", n))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancelBase()
		return nil
	case <-ctx.Done():
		p.logger.Warn("等待超时，取消剩余后台任务")
		p.cancelBase()
		<-done
		return ctx.Err()
	}
}
