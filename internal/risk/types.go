package risk

// Mode 表示风险运行姿态。
type Mode string

const (
	// ModeNormal 为常规模式，按配置仓位与信心门槛交易。
	ModeNormal Mode = "normal"
	// ModeConservative 为保守模式，仓位减半且信心门槛抬升。
	ModeConservative Mode = "conservative"
)

// Parameters 为风控参数，仅通过 AutoAdjust 变更模式相关字段。
type Parameters struct {
	MaxPositionPercent float64 // 单笔及总敞口上限（占净值比例）
	MaxDrawdown        float64 // 最大可接受回撤
	MaxDailyLoss       float64 // 当日最大累计亏损
	MinConfidence      float64 // 顾问信心门槛
	Mode               Mode
}

// State 为风控状态。CurrentDrawdown 恒等于 max(0, EquityPeak-Equity)，
// 只由 UpdatePnl/AutoAdjust 重算，绝不单独赋值。
type State struct {
	Equity          float64
	EquityPeak      float64
	CurrentDrawdown float64
	DailyLoss       float64 // 只累计亏损绝对值，每日清零
	VolumeFactor    float64 // 常规 1.0，保守 0.5
}
