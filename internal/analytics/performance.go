package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"autotrader/internal/audit"
)

// TradeRecord 为绩效计算使用的成交记录。
type TradeRecord struct {
	Timestamp time.Time
	Symbol    string
	PnL       float64
	Status    audit.TradeStatus
}

// Metrics 汇总一段时间的绩效指标。
type Metrics struct {
	TotalReturn float64
	WinRate     float64
	MaxDrawdown float64
	Trades      int
}

type tradeSource interface {
	RecentTrades(ctx context.Context, n int) ([]audit.TradeEntry, error)
}

// Service 提供近期绩效数据与日报导出。
type Service struct {
	trades tradeSource
	logger *zap.Logger
}

// NewService 创建绩效分析服务。
func NewService(trades tradeSource, logger *zap.Logger) (*Service, error) {
	if trades == nil {
		return nil, fmt.Errorf("analytics: 交易数据源不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		trades: trades,
		logger: logger,
	}, nil
}

// RecentTrades 返回最近 n 条已入库的交易记录，按时间正序。
func (s *Service) RecentTrades(ctx context.Context, n int) ([]TradeRecord, error) {
	entries, err := s.trades.RecentTrades(ctx, n)
	if err != nil {
		return nil, err
	}

	// audit 按时间倒序返回，这里翻转为正序以便累计净值。
	records := make([]TradeRecord, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		records = append(records, TradeRecord{
			Timestamp: entry.Timestamp,
			Symbol:    entry.Symbol,
			PnL:       entry.PnL,
			Status:    entry.Status,
		})
	}
	return records, nil
}

// EquityCurve 按时间累计盈亏生成净值曲线。
func (s *Service) EquityCurve(trades []TradeRecord) []float64 {
	curve := make([]float64, 0, len(trades))
	equity := 0.0
	for _, trade := range trades {
		equity += trade.PnL
		curve = append(curve, equity)
	}
	return curve
}

// MaxDrawdown 计算净值曲线的最大回撤（峰值减当前值的最大差）。
func (s *Service) MaxDrawdown(curve []float64) float64 {
	peak := 0.0
	first := true
	maxDD := 0.0
	for _, equity := range curve {
		if first || equity > peak {
			peak = equity
			first = false
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// ComputeMetrics 汇总近期交易的绩效指标。拒绝类记录不计入胜率。
func (s *Service) ComputeMetrics(trades []TradeRecord) Metrics {
	metrics := Metrics{}
	wins := 0
	completed := 0

	for _, trade := range trades {
		if trade.Status == audit.StatusRejected {
			continue
		}
		completed++
		metrics.TotalReturn += trade.PnL
		if trade.PnL > 0 {
			wins++
		}
	}

	metrics.Trades = completed
	if completed > 0 {
		metrics.WinRate = float64(wins) / float64(completed)
	}
	metrics.MaxDrawdown = s.MaxDrawdown(s.EquityCurve(trades))

	return metrics
}
