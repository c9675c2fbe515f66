package trainer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"autotrader/internal/analytics"
	"autotrader/internal/evaluator"
)

type performanceSource interface {
	RecentTrades(ctx context.Context, n int) ([]analytics.TradeRecord, error)
	ComputeMetrics(trades []analytics.TradeRecord) analytics.Metrics
}

type thresholdSink interface {
	Thresholds() evaluator.Thresholds
	SetThresholds(th evaluator.Thresholds)
}

// Updater 为周期性模型更新钩子，调度器只依赖这一个方法。
type Updater interface {
	UpdateModel(ctx context.Context) error
}

// Retrainer 周期性根据近期绩效微调规则引擎参数。
// 胜率低时收紧 RSI 过滤带，胜率恢复后逐步放回默认值。
type Retrainer struct {
	perf       performanceSource
	sink       thresholdSink
	sampleSize int
	logger     *zap.Logger
}

// NewRetrainer 创建再训练任务。
func NewRetrainer(perf performanceSource, sink thresholdSink, sampleSize int, logger *zap.Logger) (*Retrainer, error) {
	if perf == nil || sink == nil {
		return nil, fmt.Errorf("trainer: 依赖不完整")
	}
	if sampleSize <= 0 {
		sampleSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrainer{
		perf:       perf,
		sink:       sink,
		sampleSize: sampleSize,
		logger:     logger,
	}, nil
}

var _ Updater = (*Retrainer)(nil)

// UpdateModel 执行一轮参数调整。样本不足时不动参数。
func (r *Retrainer) UpdateModel(ctx context.Context) error {
	trades, err := r.perf.RecentTrades(ctx, r.sampleSize)
	if err != nil {
		return fmt.Errorf("trainer: 读取近期交易失败: %w", err)
	}

	metrics := r.perf.ComputeMetrics(trades)
	if metrics.Trades < 5 {
		r.logger.Debug("样本不足，跳过本轮再训练", zap.Int("trades", metrics.Trades))
		return nil
	}

	current := r.sink.Thresholds()
	next := r.adjust(current, metrics)
	if next == current {
		r.logger.Debug("规则参数无需调整",
			zap.Float64("win_rate", metrics.WinRate),
		)
		return nil
	}

	r.sink.SetThresholds(next)
	r.logger.Info("规则参数已更新",
		zap.Float64("win_rate", metrics.WinRate),
		zap.Float64("overbought", next.Overbought),
		zap.Float64("oversold", next.Oversold),
	)
	return nil
}

// adjust 按胜率分档调整 RSI 过滤带，每轮最多移动一档。
func (r *Retrainer) adjust(th evaluator.Thresholds, metrics analytics.Metrics) evaluator.Thresholds {
	def := evaluator.DefaultThresholds()

	switch {
	case metrics.WinRate < 0.4:
		// 胜率过低，收紧过滤带让信号更稀少。
		if th.Overbought > 60 {
			th.Overbought -= 5
		}
		if th.Oversold < 40 {
			th.Oversold += 5
		}
	case metrics.WinRate > 0.55:
		// 胜率稳定，向默认带回退。
		if th.Overbought < def.Overbought {
			th.Overbought += 5
		}
		if th.Oversold > def.Oversold {
			th.Oversold -= 5
		}
	}

	return th
}
