package execution

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"autotrader/internal/audit"
	"autotrader/internal/config"
	"autotrader/internal/gateway"
)

type orderGateway interface {
	PlaceOrder(ctx context.Context, order gateway.Order) (gateway.Fill, error)
}

type attemptLog interface {
	AppendAttempt(ctx context.Context, entry audit.AttemptEntry) error
}

// Result 为一次下单的最终结果。
type Result struct {
	Price    float64
	Attempts int
}

// Executor 在限定时间预算内带重试地提交订单，并把每次尝试写入审计流水。
type Executor struct {
	gw       orderGateway
	trail    attemptLog
	interval time.Duration
	deadline time.Duration
	logger   *zap.Logger
}

// NewExecutor 创建执行器。
func NewExecutor(gw orderGateway, trail attemptLog, cfg config.ExecutionConfig, logger *zap.Logger) *Executor {
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := cfg.RetryDeadline
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		gw:       gw,
		trail:    trail,
		interval: interval,
		deadline: deadline,
		logger:   logger,
	}
}

// Place 提交订单。瞬时故障按固定间隔重试，直到墙钟预算耗尽；
// 致命错误立即失败——网关不保证按客户端单号去重，重试致命单有重复成交风险。
// 返回错误表示订单已尝试但最终失败（Error，区别于从未送达网关的 Rejected）。
func (e *Executor) Place(ctx context.Context, order gateway.Order) (Result, error) {
	result := Result{}
	cutoff := time.Now().Add(e.deadline)

	for {
		result.Attempts++

		fill, err := e.gw.PlaceOrder(ctx, order)
		e.recordAttempt(ctx, order, result.Attempts, fill, err)

		if err == nil {
			result.Price = fill.Price
			if result.Attempts > 1 {
				e.logger.Info("重试后下单成功",
					zap.String("asset", order.Asset),
					zap.Int("attempts", result.Attempts),
				)
			}
			return result, nil
		}

		if !gateway.IsTransient(err) {
			e.logger.Error("下单遇到致命错误，停止重试",
				zap.String("asset", order.Asset),
				zap.Int("attempt", result.Attempts),
				zap.Error(err),
			)
			return result, fmt.Errorf("execution: 下单失败: %w", err)
		}

		if time.Now().Add(e.interval).After(cutoff) {
			e.logger.Error("重试预算耗尽，放弃下单",
				zap.String("asset", order.Asset),
				zap.Int("attempts", result.Attempts),
				zap.Duration("budget", e.deadline),
				zap.Error(err),
			)
			return result, fmt.Errorf("execution: 重试预算耗尽: %w", err)
		}

		e.logger.Warn("下单失败，准备重试",
			zap.String("asset", order.Asset),
			zap.Int("attempt", result.Attempts),
			zap.Duration("wait", e.interval),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return result, fmt.Errorf("execution: 下单中止: %w", context.Cause(ctx))
		case <-time.After(e.interval):
		}
	}
}

// recordAttempt 落盘单次尝试。即使整体流程正在收尾，审计写入也要完成，
// 因此使用与调用方取消解耦的上下文。
func (e *Executor) recordAttempt(ctx context.Context, order gateway.Order, attempt int, fill gateway.Fill, attemptErr error) {
	entry := audit.AttemptEntry{
		Timestamp: time.Now().UTC(),
		Symbol:    order.Asset,
		Side:      string(order.Side),
		Quantity:  order.Quantity,
		Attempt:   attempt,
		Success:   attemptErr == nil,
		Price:     fill.Price,
	}
	if attemptErr != nil {
		entry.Reason = attemptErr.Error()
	}

	if err := e.trail.AppendAttempt(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Error("写入下单尝试审计失败", zap.Error(err))
	}
}
