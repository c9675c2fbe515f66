package decision

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"autotrader/internal/audit"
	"autotrader/internal/config"
	"autotrader/internal/evaluator"
	"autotrader/internal/gateway"
	"autotrader/internal/market"
	"autotrader/internal/notify"
	"autotrader/internal/oracle"
	"autotrader/internal/ratelimit"
	"autotrader/internal/risk"
)

type exposureApplier interface {
	Apply(delta float64)
}

// Orchestrator 驱动单信号决策管线：校验、限流、问询顾问、风控闸门、下单。
// 自身不持有跨调用状态，共享组件各自串行化内部变更。
type Orchestrator struct {
	riskEngine *risk.Engine
	limiter    *ratelimit.Limiter
	advisor    Advisor
	executor   OrderPlacer
	marketData MarketData
	exposure   ExposureSource
	fallback   Fallback
	trail      Trail
	notifier   notify.Notifier
	logger     *zap.Logger

	minScore          float64
	recentTradeCount  int
	drawdownThreshold float64
}

// Config 聚合编排器所需的触发与风控节奏参数。
type Config struct {
	Trigger config.TriggerConfig
	Risk    config.RiskConfig
}

// NewOrchestrator 创建决策编排器。
func NewOrchestrator(
	cfg Config,
	riskEngine *risk.Engine,
	limiter *ratelimit.Limiter,
	advisor Advisor,
	executor OrderPlacer,
	marketData MarketData,
	exposure ExposureSource,
	fallback Fallback,
	trail Trail,
	notifier notify.Notifier,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if riskEngine == nil || limiter == nil || advisor == nil || executor == nil ||
		marketData == nil || exposure == nil || fallback == nil || trail == nil {
		return nil, fmt.Errorf("decision: 依赖不完整")
	}
	if notifier == nil {
		notifier = notify.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		riskEngine:        riskEngine,
		limiter:           limiter,
		advisor:           advisor,
		executor:          executor,
		marketData:        marketData,
		exposure:          exposure,
		fallback:          fallback,
		trail:             trail,
		notifier:          notifier,
		logger:            logger,
		minScore:          cfg.Trigger.MinScore,
		recentTradeCount:  cfg.Risk.RecentTradeCount,
		drawdownThreshold: cfg.Risk.DrawdownThreshold,
	}, nil
}

// CheckSignals 为周期任务入口：刷新自适应风控、拉取行情、评估规则信号，
// 并逐个送入管线。单个信号的失败不影响其余信号。
func (o *Orchestrator) CheckSignals(ctx context.Context) error {
	if err := o.riskEngine.AutoAdjust(ctx, o.recentTradeCount, o.drawdownThreshold); err != nil {
		// 风控自适应失败时沿用既有模式，不阻断本轮信号检查。
		o.logger.Warn("自适应风控更新失败", zap.Error(err))
	}

	snapshot, err := o.marketData.GetSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("decision: 拉取行情失败: %w", err)
	}

	signals := o.fallback.Evaluate(snapshot.Closes())
	if len(signals) == 0 {
		o.logger.Debug("本轮无规则信号")
		return nil
	}

	for _, sig := range signals {
		outcome := o.Process(ctx, sig, snapshot)
		o.logger.Info("信号处理完成",
			zap.String("asset", sig.Asset),
			zap.String("direction", string(sig.Direction)),
			zap.String("status", string(outcome.Status)),
			zap.String("reason", outcome.Reason),
		)
	}

	return nil
}

// Process 按固定顺序执行闸门检查，任何一道失败立即终止并记录原因。
// 本层不做重试，重试只发生在执行器内部。
func (o *Orchestrator) Process(ctx context.Context, sig evaluator.Signal, snapshot market.Snapshot) Outcome {
	// 1. 信号形状：方向必须受支持。
	if sig.Direction != evaluator.DirectionBuy && sig.Direction != evaluator.DirectionSell {
		return o.reject(ctx, sig, 0, ReasonUnsupportedDirection)
	}

	// 2. 保守模式下直接拒绝，不消耗顾问额度。
	if o.riskEngine.Mode() == risk.ModeConservative {
		return o.reject(ctx, sig, 0, ReasonConservativeMode)
	}

	// 3. 规则评分不达标同样不消耗额度。
	if sig.Score < o.minScore {
		return o.reject(ctx, sig, 0, ReasonScoreBelowThreshold)
	}

	// 4. 占用顾问调用额度；额度耗尽是正常的跳过，不是错误。
	if !o.limiter.TryAcquire() {
		return o.reject(ctx, sig, 0, ReasonLimitReached)
	}

	// 5. 问询顾问；失败则触发一次规则兜底评估，本轮按拒绝处理。
	// 提示词需要当前持仓，先取敞口。
	currentExposure, err := o.exposure.CurrentExposure(ctx)
	if err != nil {
		o.logger.Warn("获取当前敞口失败", zap.Error(err))
		return o.reject(ctx, sig, 0, ReasonPositionUnavailable)
	}

	params, _ := o.riskEngine.Snapshot()
	promptInput := oracle.PromptInput{
		Signal:   sig,
		Candles:  snapshot.RecentCandles(10),
		Exposure: currentExposure,
		Params:   params,
		Mode:     params.Mode,
	}

	advisory, transcript, err := o.advisor.Advise(ctx, promptInput)
	o.recordDecision(ctx, sig, transcript, err)
	if err != nil {
		o.logger.Warn("顾问响应不可用，执行规则兜底", zap.Error(err))
		fallbackSignals := o.fallback.Evaluate(snapshot.Closes())
		o.logger.Info("规则兜底评估完成", zap.Int("signals", len(fallbackSignals)))
		o.notifier.Notify(ctx, fmt.Sprintf("⚠️ 顾问响应不可用: %v", err))
		return o.reject(ctx, sig, 0, ReasonInvalidOracle)
	}

	// 6. 信心闸门使用风控引擎的动态门槛。
	if advisory.Confidence < o.riskEngine.MinConfidence() {
		return o.reject(ctx, sig, 0, ReasonLowConfidence)
	}

	// 7. 缩放后整体过一遍风控。
	adjSize := o.riskEngine.ScaleSize(advisory.Size)
	if !o.riskEngine.Validate(adjSize, currentExposure) {
		return o.reject(ctx, sig, adjSize, ReasonRiskRejected)
	}

	// 8. 构造订单并交给执行器。
	order := gateway.Order{
		Asset:    sig.Asset,
		Side:     sideFromAdvisory(advisory),
		Quantity: adjSize,
		Price:    snapshot.LastPrice(),
	}

	result, err := o.executor.Place(ctx, order)
	if err != nil {
		o.record(ctx, audit.TradeEntry{
			Symbol:   order.Asset,
			Side:     string(order.Side),
			Quantity: order.Quantity,
			Price:    order.Price,
			Status:   audit.StatusError,
			Reason:   err.Error(),
		})
		o.notifier.Notify(ctx, fmt.Sprintf("❌ 下单失败 %s %s: %v", order.Asset, order.Side, err))
		return Outcome{Status: StatusError, Reason: err.Error()}
	}

	if applier, ok := o.exposure.(exposureApplier); ok {
		delta := order.Quantity
		if order.Side == gateway.SideSell {
			delta = -delta
		}
		applier.Apply(delta)
	}

	o.record(ctx, audit.TradeEntry{
		Symbol:   order.Asset,
		Side:     string(order.Side),
		Quantity: order.Quantity,
		Price:    result.Price,
		Status:   audit.StatusFilled,
	})
	o.notifier.Notify(ctx, fmt.Sprintf("✅ 成交 %s %s 数量 %.4f 价格 %.2f",
		order.Asset, order.Side, order.Quantity, result.Price))

	return Outcome{Status: StatusFilled, Price: result.Price}
}

func (o *Orchestrator) reject(ctx context.Context, sig evaluator.Signal, quantity float64, reason string) Outcome {
	o.record(ctx, audit.TradeEntry{
		Symbol:   sig.Asset,
		Side:     string(sig.Direction),
		Quantity: quantity,
		Status:   audit.StatusRejected,
		Reason:   reason,
	})
	return Outcome{Status: StatusRejected, Reason: reason}
}

func (o *Orchestrator) record(ctx context.Context, entry audit.TradeEntry) {
	entry.Timestamp = time.Now().UTC()
	if err := o.trail.AppendTrade(ctx, entry); err != nil {
		o.logger.Error("写入交易流水失败", zap.Error(err))
	}
}

func (o *Orchestrator) recordDecision(ctx context.Context, sig evaluator.Signal, transcript oracle.Transcript, adviseErr error) {
	entry := audit.DecisionEntry{
		Timestamp: time.Now().UTC(),
		Symbol:    sig.Asset,
		Prompt:    transcript.Prompt,
		Response:  transcript.Response,
		Success:   adviseErr == nil,
	}
	if adviseErr != nil {
		entry.Reason = adviseErr.Error()
	}
	if err := o.trail.AppendDecision(ctx, entry); err != nil {
		o.logger.Error("写入决策审计失败", zap.Error(err))
	}
}

func sideFromAdvisory(advisory oracle.Advisory) gateway.Side {
	if advisory.NormalizedDirection() == "SELL" {
		return gateway.SideSell
	}
	return gateway.SideBuy
}
