package evaluator

import (
	"math"
	"sync"

	talib "github.com/markcheno/go-talib"
	"go.uber.org/zap"
)

// Direction 表示信号方向。
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Signal 为规则引擎产出的候选交易想法，只在单次管线内存活。
type Signal struct {
	Asset     string
	Direction Direction
	Reason    string
	Source    string
	Score     float64 // 规则信心评分 [0,1]
}

// Thresholds 为规则引擎的可调参数，再训练任务可以整体替换。
type Thresholds struct {
	FastPeriod int
	SlowPeriod int
	RSIPeriod  int
	Overbought float64
	Oversold   float64
}

// DefaultThresholds 返回默认规则参数。
func DefaultThresholds() Thresholds {
	return Thresholds{
		FastPeriod: 7,
		SlowPeriod: 25,
		RSIPeriod:  14,
		Overbought: 70,
		Oversold:   30,
	}
}

// Evaluator 基于均线交叉与 RSI 过滤生成规则信号。
// Evaluate 本身无副作用，参数更新经过互斥锁。
type Evaluator struct {
	mu     sync.RWMutex
	asset  string
	th     Thresholds
	logger *zap.Logger
}

// New 创建规则引擎。
func New(asset string, th Thresholds, logger *zap.Logger) *Evaluator {
	if th.FastPeriod <= 0 || th.SlowPeriod <= th.FastPeriod {
		th = DefaultThresholds()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		asset:  asset,
		th:     th,
		logger: logger,
	}
}

// SetThresholds 整体替换规则参数，由再训练任务调用。
func (e *Evaluator) SetThresholds(th Thresholds) {
	if th.FastPeriod <= 0 || th.SlowPeriod <= th.FastPeriod {
		return
	}
	e.mu.Lock()
	e.th = th
	e.mu.Unlock()
}

// Thresholds 返回当前规则参数副本。
func (e *Evaluator) Thresholds() Thresholds {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.th
}

// Evaluate 对收盘价序列评估，返回零或多个候选信号。
func (e *Evaluator) Evaluate(prices []float64) []Signal {
	e.mu.RLock()
	th := e.th
	e.mu.RUnlock()

	if len(prices) < th.SlowPeriod+1 {
		return nil
	}

	fast := talib.Sma(prices, th.FastPeriod)
	slow := talib.Sma(prices, th.SlowPeriod)
	rsi := talib.Rsi(prices, th.RSIPeriod)

	last := len(prices) - 1
	prev := last - 1

	fastAbove := fast[last] > slow[last]
	prevFastAbove := fast[prev] > slow[prev]
	lastRSI := rsi[last]

	var signals []Signal

	switch {
	case fastAbove && !prevFastAbove && lastRSI < th.Overbought:
		signals = append(signals, Signal{
			Asset:     e.asset,
			Direction: DirectionBuy,
			Reason:    "sma golden cross",
			Source:    "rule_evaluator",
			Score:     crossScore(fast[last], slow[last], lastRSI, th.Overbought),
		})
	case !fastAbove && prevFastAbove && lastRSI > th.Oversold:
		signals = append(signals, Signal{
			Asset:     e.asset,
			Direction: DirectionSell,
			Reason:    "sma death cross",
			Source:    "rule_evaluator",
			Score:     crossScore(slow[last], fast[last], 100-lastRSI, 100-th.Oversold),
		})
	}

	return signals
}

// crossScore 将交叉幅度与 RSI 余量折算为 [0,1] 评分。
func crossScore(upper, lower, rsiValue, rsiLimit float64) float64 {
	if lower <= 0 || rsiLimit <= 0 {
		return 0
	}

	spread := (upper - lower) / lower
	// 0.5% 的均线间距即视为满分交叉。
	spreadScore := math.Min(spread/0.005, 1.0)
	headroom := math.Min(math.Max((rsiLimit-rsiValue)/rsiLimit, 0), 1)

	score := 0.5 + 0.3*spreadScore + 0.2*headroom
	return math.Min(score, 1.0)
}
