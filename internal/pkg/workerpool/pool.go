package workerpool

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed   = errors.New("worker pool is closed")
	ErrPoolOverload = errors.New("worker pool is overloaded")
)

// ============= 配置 =============

// Config Worker Pool 配置
type Config struct {
	Workers        int           `mapstructure:"workers"`         // worker 数量上限
	Nonblocking    bool          `mapstructure:"nonblocking"`     // 满载时立即返回 ErrPoolOverload
	ExpiryDuration time.Duration `mapstructure:"expiry_duration"` // 空闲 worker 回收间隔
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:        256,
		Nonblocking:    true,
		ExpiryDuration: 10 * time.Second,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.ExpiryDuration < 0 {
		return errors.New("expiry duration must be >= 0")
	}
	return nil
}

// ============= 统计信息 =============

// Statistics 统计信息快照
type Statistics struct {
	Submitted int64 // 已提交
	Completed int64 // 已完成
	Failed    int64 // panic 的任务
	Rejected  int64 // 被拒绝（满载或已关闭）
	Running   int64 // 运行中
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	running   atomic.Int64
}

func (c *counters) snapshot() Statistics {
	return Statistics{
		Submitted: c.submitted.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
		Rejected:  c.rejected.Load(),
		Running:   c.running.Load(),
	}
}

// ============= Worker Pool =============

// Pool 基于 ants 的 goroutine 池
type Pool struct {
	pool   *ants.Pool
	config *Config
	stats  *counters
	logger *zap.Logger
}

// New 创建 Worker Pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid worker pool config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stats := &counters{}
	antsPool, err := ants.NewPool(config.Workers,
		ants.WithNonblocking(config.Nonblocking),
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPanicHandler(func(err interface{}) {
			stats.failed.Add(1)
			logger.Error("worker panic", zap.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &Pool{
		pool:   antsPool,
		config: config,
		stats:  stats,
		logger: logger,
	}, nil
}

// Submit 提交任务；满载时（非阻塞模式）返回 ErrPoolOverload
func (p *Pool) Submit(task func()) error {
	err := p.pool.Submit(func() {
		p.stats.running.Add(1)
		finished := false
		defer func() {
			p.stats.running.Add(-1)
			if finished {
				p.stats.completed.Add(1)
			}
		}()
		task()
		finished = true
	})

	switch {
	case err == nil:
		p.stats.submitted.Add(1)
		return nil
	case errors.Is(err, ants.ErrPoolOverload):
		p.stats.rejected.Add(1)
		return ErrPoolOverload
	case errors.Is(err, ants.ErrPoolClosed):
		p.stats.rejected.Add(1)
		return ErrPoolClosed
	default:
		p.stats.rejected.Add(1)
		return err
	}
}

// Running 获取运行中的 worker 数量
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Free 获取空闲 worker 数量
func (p *Pool) Free() int {
	return p.pool.Free()
}

// Cap 获取容量
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return p.stats.snapshot()
}

// Shutdown 关闭并等待 worker 退出，超时返回错误
func (p *Pool) Shutdown(timeout time.Duration) error {
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("worker pool release timed out",
			zap.Duration("timeout", timeout),
			zap.Int("running", p.pool.Running()))
		return err
	}
	return nil
}
