package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limiter 限制滚动窗口内的顾问调用次数。
// 计数与重置共用同一把锁，并发下计数不会漂移。
type Limiter struct {
	mu          sync.Mutex
	count       int
	limit       int
	window      time.Duration
	windowStart time.Time

	logger *zap.Logger
}

// NewLimiter 创建限流器。window 不填时默认一小时。
func NewLimiter(limit int, window time.Duration, logger *zap.Logger) *Limiter {
	if window <= 0 {
		window = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		limit:       limit,
		window:      window,
		windowStart: time.Now().UTC(),
		logger:      logger,
	}
}

// TryAcquire 原子地检查并占用一次调用额度。
// 额度耗尽返回 false，这是正常的"本轮跳过"，不是错误。
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count >= l.limit {
		// 额度耗尽属于正常情况，保持低噪音。
		l.logger.Debug("顾问调用额度已用尽",
			zap.Int("limit", l.limit),
			zap.Duration("window", l.window),
		)
		return false
	}
	l.count++
	return true
}

// Remaining 返回当前窗口剩余额度。
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit - l.count
}

// Run 在后台按窗口周期清零计数，直到 ctx 结束。
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.reset()
		}
	}
}

func (l *Limiter) reset() {
	l.mu.Lock()
	used := l.count
	l.count = 0
	l.windowStart = time.Now().UTC()
	l.mu.Unlock()

	l.logger.Debug("限流窗口已重置",
		zap.Int("used", used),
		zap.Int("limit", l.limit),
	)
}
