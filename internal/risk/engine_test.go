package risk

import (
	"context"
	"math"
	"testing"

	"autotrader/internal/analytics"
	"autotrader/internal/config"
)

type stubPerf struct {
	trades   []analytics.TradeRecord
	tradeErr error
	drawdown float64
}

func (s *stubPerf) RecentTrades(ctx context.Context, n int) ([]analytics.TradeRecord, error) {
	return s.trades, s.tradeErr
}

func (s *stubPerf) EquityCurve(trades []analytics.TradeRecord) []float64 {
	curve := make([]float64, 0, len(trades))
	equity := 0.0
	for _, t := range trades {
		equity += t.PnL
		curve = append(curve, equity)
	}
	return curve
}

func (s *stubPerf) MaxDrawdown(curve []float64) float64 {
	return s.drawdown
}

func baseRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxPositionPercent: 0.10,
		MaxDrawdown:        0.05,
		MaxDailyLoss:       0.03,
		MinConfidence:      0.70,
		DrawdownThreshold:  0.05,
		RecentTradeCount:   50,
	}
}

func TestValidate_SizeBoundary(t *testing.T) {
	engine := NewEngine(baseRiskConfig(), &stubPerf{}, nil)

	if !engine.Validate(0.10, 0) {
		t.Errorf("size equal to limit should pass")
	}
	if engine.Validate(0.1001, 0) {
		t.Errorf("size above limit should be rejected")
	}
	if engine.Validate(0.05, 0.06) {
		t.Errorf("exposure plus size above limit should be rejected")
	}
	if !engine.Validate(0.05, 0.05) {
		t.Errorf("exposure plus size equal to limit should pass")
	}
}

func TestValidate_StateLimits(t *testing.T) {
	engine := NewEngine(baseRiskConfig(), &stubPerf{}, nil)

	// 回撤超限后禁止开仓
	engine.UpdatePnl(-0.06)
	if engine.Validate(0.01, 0) {
		t.Errorf("validation should fail when drawdown exceeds limit")
	}
}

func TestValidate_DailyLossLimit(t *testing.T) {
	cfg := baseRiskConfig()
	cfg.MaxDrawdown = 1.0 // 只触发日亏损限制
	engine := NewEngine(cfg, &stubPerf{}, nil)

	engine.UpdatePnl(-0.04)
	if engine.Validate(0.01, 0) {
		t.Errorf("validation should fail when daily loss exceeds limit")
	}

	engine.ResetDailyLoss()
	if !engine.Validate(0.01, 0) {
		t.Errorf("validation should pass after daily loss reset")
	}
}

func TestUpdatePnl_DrawdownTracksEquityPeak(t *testing.T) {
	engine := NewEngine(baseRiskConfig(), &stubPerf{}, nil)

	steps := []struct {
		pnl          float64
		wantDrawdown float64
	}{
		{-2, 2},
		{1, 1},
		{2, 0},
	}

	for i, step := range steps {
		engine.UpdatePnl(step.pnl)
		_, state := engine.Snapshot()
		if math.Abs(state.CurrentDrawdown-step.wantDrawdown) > 1e-9 {
			t.Errorf("step %d: drawdown=%f want %f", i, state.CurrentDrawdown, step.wantDrawdown)
		}
	}

	_, state := engine.Snapshot()
	if math.Abs(state.DailyLoss-2) > 1e-9 {
		t.Errorf("daily loss should accumulate only losses, got %f", state.DailyLoss)
	}
}

func TestAutoAdjust_SwitchesToConservative(t *testing.T) {
	perf := &stubPerf{drawdown: 0.08}
	engine := NewEngine(baseRiskConfig(), perf, nil)

	if err := engine.AutoAdjust(context.Background(), 50, 0.05); err != nil {
		t.Fatalf("AutoAdjust returned error: %v", err)
	}

	params, state := engine.Snapshot()
	if params.Mode != ModeConservative {
		t.Fatalf("expected conservative mode, got %s", params.Mode)
	}
	if state.VolumeFactor != 0.5 {
		t.Errorf("expected volume factor 0.5, got %f", state.VolumeFactor)
	}
	if params.MinConfidence != 0.9 {
		t.Errorf("expected min confidence raised to 0.9, got %f", params.MinConfidence)
	}

	// 重复进入同一模式不应改变任何状态
	if err := engine.AutoAdjust(context.Background(), 50, 0.05); err != nil {
		t.Fatalf("second AutoAdjust returned error: %v", err)
	}
	params2, state2 := engine.Snapshot()
	if params2 != params || state2.VolumeFactor != state.VolumeFactor {
		t.Errorf("conservative mode entry should be idempotent")
	}
}

func TestAutoAdjust_KeepsHigherConfigDefault(t *testing.T) {
	cfg := baseRiskConfig()
	cfg.MinConfidence = 0.95
	engine := NewEngine(cfg, &stubPerf{drawdown: 0.08}, nil)

	if err := engine.AutoAdjust(context.Background(), 50, 0.05); err != nil {
		t.Fatalf("AutoAdjust returned error: %v", err)
	}

	params, _ := engine.Snapshot()
	if params.MinConfidence != 0.95 {
		t.Errorf("min confidence should not be lowered by conservative mode, got %f", params.MinConfidence)
	}
}

func TestAutoAdjust_RecoversToNormal(t *testing.T) {
	perf := &stubPerf{drawdown: 0.08}
	engine := NewEngine(baseRiskConfig(), perf, nil)

	if err := engine.AutoAdjust(context.Background(), 50, 0.05); err != nil {
		t.Fatalf("AutoAdjust returned error: %v", err)
	}

	perf.drawdown = 0.01
	if err := engine.AutoAdjust(context.Background(), 50, 0.05); err != nil {
		t.Fatalf("recovery AutoAdjust returned error: %v", err)
	}

	params, state := engine.Snapshot()
	if params.Mode != ModeNormal {
		t.Fatalf("expected normal mode after recovery, got %s", params.Mode)
	}
	if state.VolumeFactor != 1.0 {
		t.Errorf("expected volume factor restored to 1.0, got %f", state.VolumeFactor)
	}
	if params.MinConfidence != 0.70 {
		t.Errorf("expected min confidence restored to config default, got %f", params.MinConfidence)
	}
}

func TestScaleSize_UsesVolumeFactor(t *testing.T) {
	engine := NewEngine(baseRiskConfig(), &stubPerf{drawdown: 0.08}, nil)

	if got := engine.ScaleSize(0.08); got != 0.08 {
		t.Errorf("normal mode should not scale size, got %f", got)
	}

	if err := engine.AutoAdjust(context.Background(), 50, 0.05); err != nil {
		t.Fatalf("AutoAdjust returned error: %v", err)
	}
	if got := engine.ScaleSize(0.08); math.Abs(got-0.04) > 1e-9 {
		t.Errorf("conservative mode should halve size, got %f", got)
	}
}
