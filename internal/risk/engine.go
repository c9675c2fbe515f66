package risk

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"autotrader/internal/analytics"
	"autotrader/internal/config"
)

// PerformanceSource 提供近期绩效数据，供自适应风控消费。
type PerformanceSource interface {
	RecentTrades(ctx context.Context, n int) ([]analytics.TradeRecord, error)
	EquityCurve(trades []analytics.TradeRecord) []float64
	MaxDrawdown(curve []float64) float64
}

// Engine 持有风控参数与状态机，所有读写都经过同一把互斥锁。
type Engine struct {
	mu sync.Mutex

	params Parameters
	state  State

	// Normal 模式恢复时使用的配置默认值。
	defaultMinConfidence float64

	perf   PerformanceSource
	logger *zap.Logger
}

// NewEngine 根据配置创建风控引擎。
func NewEngine(cfg config.RiskConfig, perf PerformanceSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		params: Parameters{
			MaxPositionPercent: cfg.MaxPositionPercent,
			MaxDrawdown:        cfg.MaxDrawdown,
			MaxDailyLoss:       cfg.MaxDailyLoss,
			MinConfidence:      cfg.MinConfidence,
			Mode:               ModeNormal,
		},
		state: State{
			VolumeFactor: 1.0,
		},
		defaultMinConfidence: cfg.MinConfidence,
		perf:                 perf,
		logger:               logger,
	}
}

// Validate 判断给定仓位是否可接受。任何一条限制触发都拒绝，只返回布尔，不抛错误。
func (e *Engine) Validate(size, exposure float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if size > e.params.MaxPositionPercent {
		e.logger.Warn("仓位超过单笔上限",
			zap.Float64("size", size),
			zap.Float64("limit", e.params.MaxPositionPercent),
		)
		return false
	}
	if exposure+size > e.params.MaxPositionPercent {
		e.logger.Warn("总敞口将超过上限",
			zap.Float64("size", size),
			zap.Float64("exposure", exposure),
			zap.Float64("limit", e.params.MaxPositionPercent),
		)
		return false
	}
	if e.state.CurrentDrawdown > e.params.MaxDrawdown {
		e.logger.Warn("回撤超过上限，停止开仓",
			zap.Float64("drawdown", e.state.CurrentDrawdown),
			zap.Float64("limit", e.params.MaxDrawdown),
		)
		return false
	}
	if e.state.DailyLoss > e.params.MaxDailyLoss {
		e.logger.Warn("当日亏损超过上限，停止开仓",
			zap.Float64("daily_loss", e.state.DailyLoss),
			zap.Float64("limit", e.params.MaxDailyLoss),
		)
		return false
	}

	return true
}

// UpdatePnl 录入一笔已实现盈亏，并重算净值峰值与回撤。
// 每笔终态交易只能调用一次，未实现盈亏不参与。
func (e *Engine) UpdatePnl(pnl float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Equity += pnl
	if e.state.Equity > e.state.EquityPeak {
		e.state.EquityPeak = e.state.Equity
	}
	e.state.CurrentDrawdown = e.state.EquityPeak - e.state.Equity
	if pnl < 0 {
		e.state.DailyLoss += -pnl
	}
}

// AutoAdjust 从绩效数据重算回撤并切换风险模式。重复进入同一模式为空操作。
func (e *Engine) AutoAdjust(ctx context.Context, recentTradeCount int, drawdownThreshold float64) error {
	if e.perf == nil {
		return fmt.Errorf("risk: 缺少绩效数据源")
	}

	trades, err := e.perf.RecentTrades(ctx, recentTradeCount)
	if err != nil {
		return fmt.Errorf("risk: 获取近期交易失败: %w", err)
	}

	curve := e.perf.EquityCurve(trades)
	drawdown := e.perf.MaxDrawdown(curve)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.CurrentDrawdown = drawdown

	if drawdown > drawdownThreshold {
		if e.params.Mode == ModeConservative {
			return nil
		}
		e.params.Mode = ModeConservative
		e.state.VolumeFactor = 0.5
		if e.params.MinConfidence < 0.9 {
			e.params.MinConfidence = 0.9
		}
		e.logger.Warn("回撤超过阈值，切换为保守模式",
			zap.Float64("drawdown", drawdown),
			zap.Float64("threshold", drawdownThreshold),
			zap.Float64("min_confidence", e.params.MinConfidence),
		)
		return nil
	}

	if e.params.Mode == ModeNormal {
		return nil
	}
	e.params.Mode = ModeNormal
	e.state.VolumeFactor = 1.0
	e.params.MinConfidence = e.defaultMinConfidence
	e.logger.Info("回撤恢复正常，切回常规模式",
		zap.Float64("drawdown", drawdown),
		zap.Float64("min_confidence", e.params.MinConfidence),
	)
	return nil
}

// ScaleSize 按当前模式的量能系数缩放拟交易仓位。
func (e *Engine) ScaleSize(size float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return size * e.state.VolumeFactor
}

// ResetDailyLoss 清零日亏损累计值，由日报任务每日调用一次。
func (e *Engine) ResetDailyLoss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.DailyLoss = 0
}

// Mode 返回当前风险模式。
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Mode
}

// MinConfidence 返回当前的最低信心门槛。
func (e *Engine) MinConfidence() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.MinConfidence
}

// Snapshot 返回参数与状态的副本，用于提示词与日志。
func (e *Engine) Snapshot() (Parameters, State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params, e.state
}
