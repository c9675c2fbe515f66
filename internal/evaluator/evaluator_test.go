package evaluator

import "testing"

// 宽松的 RSI 带宽，避免过滤条件干扰交叉判定。
func crossTestThresholds() Thresholds {
	return Thresholds{
		FastPeriod: 3,
		SlowPeriod: 5,
		RSIPeriod:  5,
		Overbought: 100,
		Oversold:   0,
	}
}

func TestEvaluate_GoldenCrossProducesBuySignal(t *testing.T) {
	eval := New("BTC/USDT:USDT", crossTestThresholds(), nil)

	// 长期下跌后尾部急拉，快线在最后一根K线上穿慢线
	prices := []float64{20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 12, 18}

	signals := eval.Evaluate(prices)
	if len(signals) != 1 {
		t.Fatalf("expected exactly one signal, got %d", len(signals))
	}

	sig := signals[0]
	if sig.Direction != DirectionBuy {
		t.Errorf("expected buy signal, got %s", sig.Direction)
	}
	if sig.Asset != "BTC/USDT:USDT" {
		t.Errorf("unexpected asset %q", sig.Asset)
	}
	if sig.Score < 0 || sig.Score > 1 {
		t.Errorf("score must stay within [0,1], got %f", sig.Score)
	}
}

func TestEvaluate_DeathCrossProducesSellSignal(t *testing.T) {
	eval := New("BTC/USDT:USDT", crossTestThresholds(), nil)

	// 长期上涨后尾部急跌，快线在最后一根K线下穿慢线
	prices := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 18, 12}

	signals := eval.Evaluate(prices)
	if len(signals) != 1 {
		t.Fatalf("expected exactly one signal, got %d", len(signals))
	}
	if signals[0].Direction != DirectionSell {
		t.Errorf("expected sell signal, got %s", signals[0].Direction)
	}
}

func TestEvaluate_NoCrossYieldsNoSignal(t *testing.T) {
	eval := New("BTC/USDT:USDT", crossTestThresholds(), nil)

	// 单边上涨，快线始终在慢线上方，无交叉
	prices := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24}

	if signals := eval.Evaluate(prices); len(signals) != 0 {
		t.Errorf("expected no signal without a fresh cross, got %d", len(signals))
	}
}

func TestEvaluate_InsufficientDataYieldsNoSignal(t *testing.T) {
	eval := New("BTC/USDT:USDT", crossTestThresholds(), nil)

	if signals := eval.Evaluate([]float64{1, 2, 3}); signals != nil {
		t.Errorf("expected nil signals with insufficient data, got %v", signals)
	}
}

func TestSetThresholds_RejectsInvalidPeriods(t *testing.T) {
	eval := New("BTC/USDT:USDT", DefaultThresholds(), nil)
	before := eval.Thresholds()

	eval.SetThresholds(Thresholds{FastPeriod: 10, SlowPeriod: 5})

	if eval.Thresholds() != before {
		t.Errorf("invalid thresholds must not replace current parameters")
	}

	next := before
	next.Overbought = 65
	eval.SetThresholds(next)
	if eval.Thresholds().Overbought != 65 {
		t.Errorf("valid thresholds should be applied")
	}
}
