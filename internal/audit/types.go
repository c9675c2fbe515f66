package audit

import "time"

// TradeStatus 表示一次交易流水的终态。
type TradeStatus string

const (
	// StatusFilled 表示订单已提交并成交。
	StatusFilled TradeStatus = "filled"
	// StatusRejected 表示信号在送达网关前被拒绝。
	StatusRejected TradeStatus = "rejected"
	// StatusError 表示订单已尝试提交但最终失败。
	StatusError TradeStatus = "error"
)

// TradeEntry 为交易流水的一行，只追加，不修改。
type TradeEntry struct {
	Timestamp time.Time
	Symbol    string
	Side      string
	Quantity  float64
	Price     float64
	PnL       float64
	Status    TradeStatus
	Reason    string
}

// DecisionEntry 记录一次顾问调用的审计信息。
type DecisionEntry struct {
	Timestamp time.Time
	Symbol    string
	Prompt    string
	Response  string
	Success   bool
	Reason    string
}

// AttemptEntry 记录执行器的单次下单尝试。
type AttemptEntry struct {
	Timestamp time.Time
	Symbol    string
	Side      string
	Quantity  float64
	Attempt   int
	Success   bool
	Price     float64
	Reason    string
}
