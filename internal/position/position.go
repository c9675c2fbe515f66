package position

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"
)

type balanceClient interface {
	FetchBalance(params ...interface{}) (ccxt.Balances, error)
	FetchPositions(options ...ccxt.FetchPositionsOptions) ([]ccxt.Position, error)
}

// Manager 从交易所计算当前净敞口（占净值比例，多头为正）。
type Manager struct {
	client balanceClient
	symbol string
	logger *zap.Logger
}

// NewManager 创建仓位管理器。
func NewManager(client balanceClient, symbol string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client: client,
		symbol: symbol,
		logger: logger,
	}
}

// CurrentExposure 返回当前净敞口比例。
func (m *Manager) CurrentExposure(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	balances, err := m.client.FetchBalance()
	if err != nil {
		return 0, fmt.Errorf("position: 获取账户余额失败: %w", err)
	}

	equity := totalEquity(balances)
	if equity <= 0 {
		return 0, fmt.Errorf("position: 账户净值无效")
	}

	rawPositions, err := m.client.FetchPositions()
	if err != nil {
		return 0, fmt.Errorf("position: 获取持仓失败: %w", err)
	}

	var notional float64
	for _, pos := range rawPositions {
		symbol := derefString(pos.Symbol)
		if symbol == "" || !strings.EqualFold(symbol, m.symbol) {
			continue
		}

		value := derefFloat(pos.Notional)
		if value == 0 {
			value = derefFloat(pos.Contracts) * derefFloat(pos.MarkPrice)
		}
		if strings.EqualFold(derefString(pos.Side), "short") {
			value = -value
		}
		notional += value
	}

	exposure := notional / equity
	m.logger.Debug("敞口快照",
		zap.String("symbol", m.symbol),
		zap.Float64("equity", equity),
		zap.Float64("exposure", exposure),
	)

	return exposure, nil
}

func totalEquity(balances ccxt.Balances) float64 {
	if balances.Total == nil {
		return 0
	}
	for _, code := range []string{"USDT", "USDC", "USD"} {
		if total, ok := balances.Total[code]; ok && total != nil && *total > 0 {
			return *total
		}
	}
	for _, v := range balances.Total {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// Simulated 在模拟模式下本地维护敞口。
type Simulated struct {
	mu       sync.Mutex
	exposure float64
}

// NewSimulated 创建本地敞口记录器。
func NewSimulated() *Simulated {
	return &Simulated{}
}

// CurrentExposure 返回本地记录的敞口。
func (s *Simulated) CurrentExposure(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure, nil
}

// Apply 在成交后累加敞口变化（买入为正，卖出为负）。
func (s *Simulated) Apply(delta float64) {
	s.mu.Lock()
	s.exposure += delta
	s.mu.Unlock()
}
