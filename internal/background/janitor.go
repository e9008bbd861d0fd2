package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// Purger 能清理过期键的存储（Postgres 没有原生 TTL）
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Janitor 定期清理过期键
type Janitor struct {
	purger   Purger
	interval time.Duration
	logger   *logger.Logger
	wg       sync.WaitGroup
	stopCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewJanitor 创建 Janitor
func NewJanitor(purger Purger, interval time.Duration, log *logger.Logger) *Janitor {
	if log == nil {
		log = logger.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{
		purger:   purger,
		interval: interval,
		logger:   log.Named("janitor"),
	}
}

// Start 启动清理循环
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("janitor already running")
	}
	j.running = true
	j.stopCh = make(chan struct{})

	j.wg.Add(1)
	go j.loop(ctx, j.stopCh)

	j.logger.Info("kv janitor started", zap.Duration("interval", j.interval))
	return nil
}

// Stop 停止清理循环
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	close(j.stopCh)
	j.wg.Wait()
	j.running = false
	j.logger.Info("kv janitor stopped")
}

func (j *Janitor) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.interval)
	defer cancel()

	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		j.logger.Warn("purge expired keys failed", zap.Error(err))
		return
	}
	if n > 0 {
		j.logger.Debug("purged expired keys", zap.Int64("count", n))
	}
}
