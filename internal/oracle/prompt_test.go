package oracle

import (
	"strings"
	"testing"
	"time"

	"autotrader/internal/evaluator"
	"autotrader/internal/market"
	"autotrader/internal/risk"
)

func TestBuildPrompt_ContainsSignalAndRiskContext(t *testing.T) {
	input := PromptInput{
		Signal: evaluator.Signal{
			Asset:     "BTC/USDT:USDT",
			Direction: evaluator.DirectionBuy,
			Reason:    "sma golden cross",
			Score:     0.72,
		},
		Candles: []market.Candle{
			{Timestamp: time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC), Open: 50000, High: 50500, Low: 49800, Close: 50400, Volume: 12},
		},
		Exposure: 0.04,
		Params: risk.Parameters{
			MaxPositionPercent: 0.10,
			MinConfidence:      0.70,
			Mode:               risk.ModeNormal,
		},
		Mode: risk.ModeNormal,
	}

	prompt, err := BuildPrompt(input)
	if err != nil {
		t.Fatalf("BuildPrompt returned error: %v", err)
	}

	for _, want := range []string{
		"BTC/USDT:USDT",
		"sma golden cross",
		"0.72",
		"4.00%",
		"10.00%",
		"normal",
		"50400",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_TruncatesCandleWindow(t *testing.T) {
	candles := make([]market.Candle, promptCandleWindow+5)
	base := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = market.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Close:     50000 + float64(i),
		}
	}

	prompt, err := BuildPrompt(PromptInput{
		Signal:  evaluator.Signal{Asset: "BTC/USDT:USDT", Direction: evaluator.DirectionBuy},
		Candles: candles,
		Params:  risk.Parameters{MaxPositionPercent: 0.10, MinConfidence: 0.70},
		Mode:    risk.ModeNormal,
	})
	if err != nil {
		t.Fatalf("BuildPrompt returned error: %v", err)
	}

	// 窗口外最早的K线不应出现在提示词中
	if strings.Contains(prompt, base.Format("2006-01-02 15:04")) {
		t.Errorf("prompt should only carry the most recent %d candles", promptCandleWindow)
	}
	if !strings.Contains(prompt, candles[len(candles)-1].Timestamp.Format("2006-01-02 15:04")) {
		t.Errorf("prompt should carry the latest candle")
	}
}
