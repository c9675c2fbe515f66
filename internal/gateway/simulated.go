package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Simulated 为模拟网关，不触达任何交易所，按参考价直接回执成交。
type Simulated struct {
	symbol string
	logger *zap.Logger
}

// NewSimulated 创建模拟网关。
func NewSimulated(symbol string, logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulated{symbol: symbol, logger: logger}
}

// PlaceOrder 记录并立即按参考价成交。
func (g *Simulated) PlaceOrder(ctx context.Context, order Order) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	if order.Quantity <= 0 {
		return Fill{}, fmt.Errorf("gateway: 下单数量无效 quantity=%.6f", order.Quantity)
	}

	g.logger.Info("模拟成交",
		zap.String("symbol", g.symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", order.Quantity),
		zap.Float64("price", order.Price),
	)

	return Fill{Price: order.Price}, nil
}
