package gateway

import (
	"context"
	"fmt"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"autotrader/internal/config"
)

type orderClient interface {
	CreateMarketOrder(symbol string, side string, amount float64, options ...ccxt.CreateMarketOrderOptions) (ccxt.Order, error)
	CreateLimitOrder(symbol string, side string, amount float64, price float64, options ...ccxt.CreateLimitOrderOptions) (ccxt.Order, error)
}

// CCXT 通过 ccxt 客户端向交易所提交订单。
type CCXT struct {
	client orderClient
	symbol string
	logger *zap.Logger
}

// NewCCXT 根据交易配置构造实盘网关。
func NewCCXT(cfg config.TradeConfig, logger *zap.Logger) (*CCXT, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"defaultType": "future",
		},
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	client := ccxt.NewBinanceusdm(userConfig)
	if cfg.UseSandbox {
		client.SetSandboxMode(true)
	}

	return &CCXT{
		client: client,
		symbol: cfg.Symbol,
		logger: logger,
	}, nil
}

// newCCXTWithClient 供测试注入假客户端。
func newCCXTWithClient(client orderClient, symbol string, logger *zap.Logger) *CCXT {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CCXT{client: client, symbol: symbol, logger: logger}
}

// PlaceOrder 提交一笔市价单，返回成交回执。错误原样上抛，由执行器分类处理。
func (g *CCXT) PlaceOrder(ctx context.Context, order Order) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	if order.Quantity <= 0 {
		return Fill{}, fmt.Errorf("gateway: 下单数量无效 quantity=%.6f", order.Quantity)
	}

	result, err := g.client.CreateMarketOrder(g.symbol, string(order.Side), order.Quantity)
	if err != nil {
		return Fill{}, err
	}

	price := fillPrice(result)
	if price <= 0 {
		price = order.Price
	}

	g.logger.Info("订单已提交",
		zap.String("symbol", g.symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", order.Quantity),
		zap.Float64("price", price),
	)

	return Fill{Price: price}, nil
}

func fillPrice(order ccxt.Order) float64 {
	if order.Average != nil && *order.Average > 0 {
		return *order.Average
	}
	if order.Price != nil && *order.Price > 0 {
		return *order.Price
	}
	return 0
}
