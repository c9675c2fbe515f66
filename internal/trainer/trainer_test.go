package trainer

import (
	"context"
	"errors"
	"testing"

	"autotrader/internal/analytics"
	"autotrader/internal/evaluator"
)

type stubPerf struct {
	trades  []analytics.TradeRecord
	err     error
	metrics analytics.Metrics
}

func (s *stubPerf) RecentTrades(ctx context.Context, n int) ([]analytics.TradeRecord, error) {
	return s.trades, s.err
}

func (s *stubPerf) ComputeMetrics(trades []analytics.TradeRecord) analytics.Metrics {
	return s.metrics
}

type recordingSink struct {
	current evaluator.Thresholds
	sets    []evaluator.Thresholds
}

func (r *recordingSink) Thresholds() evaluator.Thresholds { return r.current }

func (r *recordingSink) SetThresholds(th evaluator.Thresholds) {
	r.current = th
	r.sets = append(r.sets, th)
}

func TestRetrain_TightensBandsOnPoorWinRate(t *testing.T) {
	perf := &stubPerf{metrics: analytics.Metrics{Trades: 20, WinRate: 0.3}}
	sink := &recordingSink{current: evaluator.DefaultThresholds()}

	retrainer, err := NewRetrainer(perf, sink, 20, nil)
	if err != nil {
		t.Fatalf("NewRetrainer returned error: %v", err)
	}

	if err := retrainer.UpdateModel(context.Background()); err != nil {
		t.Fatalf("UpdateModel returned error: %v", err)
	}

	if len(sink.sets) != 1 {
		t.Fatalf("expected one threshold update, got %d", len(sink.sets))
	}
	got := sink.current
	if got.Overbought != 65 || got.Oversold != 35 {
		t.Errorf("expected tightened bands 65/35, got %.0f/%.0f", got.Overbought, got.Oversold)
	}
}

func TestRetrain_RelaxesBackTowardsDefault(t *testing.T) {
	perf := &stubPerf{metrics: analytics.Metrics{Trades: 20, WinRate: 0.6}}
	tightened := evaluator.DefaultThresholds()
	tightened.Overbought = 60
	tightened.Oversold = 40
	sink := &recordingSink{current: tightened}

	retrainer, _ := NewRetrainer(perf, sink, 20, nil)
	if err := retrainer.UpdateModel(context.Background()); err != nil {
		t.Fatalf("UpdateModel returned error: %v", err)
	}

	got := sink.current
	if got.Overbought != 65 || got.Oversold != 35 {
		t.Errorf("expected bands stepping back to 65/35, got %.0f/%.0f", got.Overbought, got.Oversold)
	}
}

func TestRetrain_SkipsOnInsufficientSample(t *testing.T) {
	perf := &stubPerf{metrics: analytics.Metrics{Trades: 2, WinRate: 0.0}}
	sink := &recordingSink{current: evaluator.DefaultThresholds()}

	retrainer, _ := NewRetrainer(perf, sink, 20, nil)
	if err := retrainer.UpdateModel(context.Background()); err != nil {
		t.Fatalf("UpdateModel returned error: %v", err)
	}
	if len(sink.sets) != 0 {
		t.Errorf("insufficient sample must not touch thresholds")
	}
}

func TestRetrain_NoChangeInNeutralBand(t *testing.T) {
	perf := &stubPerf{metrics: analytics.Metrics{Trades: 20, WinRate: 0.5}}
	sink := &recordingSink{current: evaluator.DefaultThresholds()}

	retrainer, _ := NewRetrainer(perf, sink, 20, nil)
	if err := retrainer.UpdateModel(context.Background()); err != nil {
		t.Fatalf("UpdateModel returned error: %v", err)
	}
	if len(sink.sets) != 0 {
		t.Errorf("neutral win rate must leave thresholds unchanged")
	}
}

func TestRetrain_PropagatesSourceError(t *testing.T) {
	perf := &stubPerf{err: errors.New("database locked")}
	sink := &recordingSink{current: evaluator.DefaultThresholds()}

	retrainer, _ := NewRetrainer(perf, sink, 20, nil)
	if err := retrainer.UpdateModel(context.Background()); err == nil {
		t.Errorf("expected error from trade source")
	}
}
