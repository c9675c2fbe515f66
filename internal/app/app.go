package app

import (
	"context"
	"errors"
	"fmt"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"autotrader/internal/analytics"
	"autotrader/internal/audit"
	"autotrader/internal/config"
	"autotrader/internal/decision"
	"autotrader/internal/evaluator"
	"autotrader/internal/execution"
	"autotrader/internal/gateway"
	"autotrader/internal/market"
	"autotrader/internal/notify"
	"autotrader/internal/oracle"
	"autotrader/internal/position"
	"autotrader/internal/ratelimit"
	"autotrader/internal/risk"
	"autotrader/internal/scheduler"
	"autotrader/internal/store"
	"autotrader/internal/trainer"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 组装全部组件并阻塞运行，直到上下文取消。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("交易系统已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.Bool("simulation", a.cfg.App.Simulation),
		zap.String("symbol", a.cfg.Market.Symbol),
	)

	trail, err := audit.NewTrail(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化审计存储失败: %w", err)
	}

	perfSvc, err := analytics.NewService(trail, a.logger)
	if err != nil {
		return fmt.Errorf("初始化绩效服务失败: %w", err)
	}

	var notifier notify.Notifier = notify.Nop()
	if a.cfg.Telegram.Enabled {
		notifier = notify.NewTelegram(a.cfg.Telegram, a.logger)
	}

	reporter, err := analytics.NewReporter(perfSvc, a.store, notifier, a.cfg.Risk.RecentTradeCount, a.logger)
	if err != nil {
		return fmt.Errorf("初始化日报导出器失败: %w", err)
	}

	riskEngine := risk.NewEngine(a.cfg.Risk, perfSvc, a.logger)

	limiter := ratelimit.NewLimiter(a.cfg.Oracle.MaxCallsPerHour, 0, a.logger)

	advisor, err := oracle.NewClient(a.cfg.Oracle, a.logger)
	if err != nil {
		return fmt.Errorf("初始化顾问客户端失败: %w", err)
	}

	marketClient, err := market.NewClient(a.cfg.Market, a.logger)
	if err != nil {
		return fmt.Errorf("初始化行情客户端失败: %w", err)
	}
	marketSvc := market.NewService(marketClient, a.cfg.Trigger.CandleLimit, a.logger)

	ruleEvaluator := evaluator.New(a.cfg.Market.Symbol, evaluator.DefaultThresholds(), a.logger)

	orderGateway, exposureSource, err := a.buildExecutionSide()
	if err != nil {
		return err
	}

	executor := execution.NewExecutor(orderGateway, trail, a.cfg.Execution, a.logger)

	orchestrator, err := decision.NewOrchestrator(
		decision.Config{Trigger: a.cfg.Trigger, Risk: a.cfg.Risk},
		riskEngine,
		limiter,
		advisor,
		executor,
		marketSvc,
		exposureSource,
		ruleEvaluator,
		trail,
		notifier,
		a.logger,
	)
	if err != nil {
		return fmt.Errorf("初始化决策编排器失败: %w", err)
	}

	retrainer, err := trainer.NewRetrainer(perfSvc, ruleEvaluator, a.cfg.Risk.RecentTradeCount, a.logger)
	if err != nil {
		return fmt.Errorf("初始化再训练任务失败: %w", err)
	}

	go limiter.Run(ctx)

	sched := scheduler.New(a.cfg.Scheduler, a.logger)

	if err := sched.Register("signal_check", a.cfg.Scheduler.SignalInterval, orchestrator.CheckSignals); err != nil {
		return err
	}
	if err := sched.Register("retrain", a.cfg.Scheduler.RetrainInterval, retrainer.UpdateModel); err != nil {
		return err
	}
	if err := sched.Register("daily_report", a.cfg.Scheduler.ReportInterval, func(jobCtx context.Context) error {
		if err := reporter.ExportDaily(jobCtx); err != nil {
			return err
		}
		riskEngine.ResetDailyLoss()
		return nil
	}); err != nil {
		return err
	}

	sched.Start(ctx)

	<-ctx.Done()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("系统异常退出", zap.Error(err))
	} else {
		a.logger.Info("系统收到退出信号，正在停止")
	}

	if err := sched.Stop(); err != nil {
		a.logger.Warn("停止调度器超时", zap.Error(err))
		return err
	}

	return nil
}

// buildExecutionSide 按运行模式装配下单网关与敞口来源。
// 模拟模式完全不触达交易所，敞口在本地累计。
func (a *App) buildExecutionSide() (executionGateway, decision.ExposureSource, error) {
	if a.cfg.App.Simulation {
		a.logger.Info("执行器处于模拟模式", zap.String("symbol", a.cfg.Trade.Symbol))
		return gateway.NewSimulated(a.cfg.Trade.Symbol, a.logger), position.NewSimulated(), nil
	}

	gw, err := gateway.NewCCXT(a.cfg.Trade, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化交易网关失败: %w", err)
	}

	tradeClient, err := newTradeClient(a.cfg.Trade)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化交易客户端失败: %w", err)
	}
	posMgr := position.NewManager(tradeClient, a.cfg.Trade.Symbol, a.logger)

	return gw, posMgr, nil
}

type executionGateway interface {
	PlaceOrder(ctx context.Context, order gateway.Order) (gateway.Fill, error)
}

func newTradeClient(cfg config.TradeConfig) (*ccxt.Binanceusdm, error) {
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
	return client, nil
}
