package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/metrics"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// Task 后台任务；失败只记录日志，不重试
type Task func(ctx context.Context) error

// Runner 派发不阻塞请求的后台任务（点击计数、事件写入）
type Runner struct {
	pool    *workerpool.Pool
	logger  *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner 创建 Runner；pool 为 nil 时每个任务使用独立 goroutine
func NewRunner(pool *workerpool.Pool, log *logger.Logger, taskTimeout time.Duration) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	if taskTimeout <= 0 {
		taskTimeout = 5 * time.Second
	}
	return &Runner{
		pool:    pool,
		logger:  log.Named("background"),
		timeout: taskTimeout,
	}
}

// Go 派发任务后立即返回。任务脱离请求的取消信号，但保留其中的值（request_id）。
func (r *Runner) Go(ctx context.Context, name string, task Task) {
	detached := context.WithoutCancel(ctx)

	r.wg.Add(1)
	run := func() {
		defer r.wg.Done()
		r.execute(detached, name, task)
	}

	if r.pool == nil {
		go run()
		return
	}

	if err := r.pool.Submit(run); err != nil {
		// 池满或已关闭时退回到独立 goroutine，保证调用方不阻塞也不丢任务
		if errors.Is(err, workerpool.ErrPoolOverload) {
			r.logger.Debug("worker pool saturated, spawning goroutine", zap.String("task", name))
		} else {
			r.logger.Warn("worker pool rejected task", zap.String("task", name), zap.Error(err))
		}
		metrics.ObserveBackgroundTask(name, metrics.ResultRejected)
		go run()
	}
}

func (r *Runner) execute(ctx context.Context, name string, task Task) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.logger.WithContext(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			metrics.ObserveBackgroundTask(name, metrics.ResultPanic)
			log.Error("background task panicked",
				zap.String("task", name),
				zap.Any("panic", rec),
				zap.Stack("stack"))
		}
	}()

	if err := task(ctx); err != nil {
		metrics.ObserveBackgroundTask(name, metrics.ResultError)
		log.Warn("background task failed", zap.String("task", name), zap.Error(err))
		return
	}
	metrics.ObserveBackgroundTask(name, metrics.ResultOK)
}

// Wait 等待所有已派发任务结束
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown 在 ctx 截止前排空任务并释放 worker 池
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}

	if r.pool != nil {
		timeout := time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if timeout <= 0 {
			timeout = 100 * time.Millisecond
		}
		return r.pool.Shutdown(timeout)
	}
	return nil
}
