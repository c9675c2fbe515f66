package decision

import (
	"context"

	"autotrader/internal/audit"
	"autotrader/internal/evaluator"
	"autotrader/internal/execution"
	"autotrader/internal/gateway"
	"autotrader/internal/market"
	"autotrader/internal/oracle"
)

// Status 为单次管线的终态。
type Status string

const (
	// StatusFilled 表示订单已送达网关并成交。
	StatusFilled Status = "filled"
	// StatusRejected 表示信号在某个闸门被拒，从未送达网关。
	StatusRejected Status = "rejected"
	// StatusError 表示订单已尝试提交但重试预算内未成功。
	StatusError Status = "error"
)

// 拒绝原因字符串会原样写入审计流水，是运维排查"为何没交易"的唯一线索。
const (
	ReasonUnsupportedDirection = "unsupported direction"
	ReasonConservativeMode     = "conservative mode"
	ReasonScoreBelowThreshold  = "score below threshold"
	ReasonLimitReached         = "limit reached"
	ReasonInvalidOracle        = "invalid oracle response"
	ReasonLowConfidence        = "low confidence"
	ReasonRiskRejected         = "risk manager rejection"
	ReasonMarketUnavailable    = "market data unavailable"
	ReasonPositionUnavailable  = "position data unavailable"
)

// Outcome 汇总一次管线的结果。
type Outcome struct {
	Status Status
	Reason string
	Price  float64
}

// Advisor 抽象顾问客户端，便于注入真实或测试实现。
type Advisor interface {
	Advise(ctx context.Context, input oracle.PromptInput) (oracle.Advisory, oracle.Transcript, error)
}

// MarketData 提供行情快照。
type MarketData interface {
	GetSnapshot(ctx context.Context) (market.Snapshot, error)
}

// ExposureSource 提供当前净敞口。
type ExposureSource interface {
	CurrentExposure(ctx context.Context) (float64, error)
}

// OrderPlacer 抽象带重试的下单执行器。
type OrderPlacer interface {
	Place(ctx context.Context, order gateway.Order) (execution.Result, error)
}

// Fallback 为顾问失效时的规则兜底评估器。
type Fallback interface {
	Evaluate(prices []float64) []evaluator.Signal
}

// Trail 为管线写入的审计流水。
type Trail interface {
	AppendTrade(ctx context.Context, entry audit.TradeEntry) error
	AppendDecision(ctx context.Context, entry audit.DecisionEntry) error
}
