package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"autotrader/internal/config"
)

// Job 为一次周期任务的执行体。上下文在调度器停止时取消。
type Job func(ctx context.Context) error

// Scheduler 按固定间隔驱动周期任务。同名任务绝不并发：
// 上一轮未结束时，本轮触发直接跳过并记录一条日志，不排队补跑。
type Scheduler struct {
	cron        *cron.Cron
	logger      *zap.Logger
	stopTimeout time.Duration

	mu      sync.Mutex
	started bool
	jobCtx  context.Context
	cancel  context.CancelFunc
}

// jobContext 返回任务用的上下文；未启动时退化为 Background，
// 仅出现在测试直接调用 Run 的场景。
func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobCtx == nil {
		return context.Background()
	}
	return s.jobCtx
}

// New 创建调度器。
func New(cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	return &Scheduler{
		cron:        cron.New(),
		logger:      logger,
		stopTimeout: stopTimeout,
	}
}

// Register 注册一个周期任务。必须在 Start 之前调用。
func (s *Scheduler) Register(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: 任务 %s 的间隔无效: %v", name, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler: 调度器已启动，不能再注册任务 %s", name)
	}

	runner := &jobRunner{
		name:   name,
		job:    job,
		sched:  s,
		logger: s.logger.With(zap.String("job", name)),
	}

	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddJob(spec, runner); err != nil {
		return fmt.Errorf("scheduler: 注册任务 %s 失败: %w", name, err)
	}

	s.logger.Info("周期任务已注册",
		zap.String("job", name),
		zap.Duration("interval", interval),
	)
	return nil
}

// Start 启动调度器。重复调用是无害的空操作。
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	jobCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.jobCtx = jobCtx

	s.cron.Start()
	s.logger.Info("调度器已启动")
}

// Stop 停止触发新任务，并在限定时间内等待在跑任务结束。
// 超时返回错误，调用方据此决定是否强行退出。
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	if cancel != nil {
		cancel()
	}

	select {
	case <-stopCtx.Done():
		s.logger.Info("调度器已停止")
		return nil
	case <-time.After(s.stopTimeout):
		return fmt.Errorf("scheduler: 等待在跑任务超时 (%v)", s.stopTimeout)
	}
}

// jobRunner 给任务套上防重入与 panic 兜底。
type jobRunner struct {
	name   string
	job    Job
	sched  *Scheduler
	logger *zap.Logger

	running sync.Mutex
}

func (r *jobRunner) Run() {
	if !r.running.TryLock() {
		// 上一轮还没跑完，本轮放弃。
		r.logger.Warn("上一轮任务仍在执行，跳过本轮")
		return
	}
	defer r.running.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("任务 panic", zap.Any("panic", rec))
		}
	}()

	ctx := r.sched.jobContext()
	start := time.Now()
	if err := r.job(ctx); err != nil {
		r.logger.Error("任务执行失败",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("任务执行完成", zap.Duration("elapsed", time.Since(start)))
}
