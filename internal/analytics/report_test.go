package analytics

import (
	"context"
	"math"
	"testing"

	"autotrader/internal/audit"
	"autotrader/internal/config"
	"autotrader/internal/notify"
	"autotrader/internal/store"
)

func TestExportDaily_PersistsMetrics(t *testing.T) {
	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 4,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	trail, err := audit.NewTrail(st, nil)
	if err != nil {
		t.Fatalf("NewTrail returned error: %v", err)
	}

	ctx := context.Background()
	for _, entry := range []audit.TradeEntry{
		{Symbol: "BTC/USDT:USDT", Side: "buy", Quantity: 0.05, PnL: 2, Status: audit.StatusFilled},
		{Symbol: "BTC/USDT:USDT", Side: "sell", Quantity: 0.05, PnL: -1, Status: audit.StatusFilled},
		{Symbol: "BTC/USDT:USDT", Side: "buy", Quantity: 0.02, Status: audit.StatusRejected, Reason: "low confidence"},
	} {
		if err := trail.AppendTrade(ctx, entry); err != nil {
			t.Fatalf("AppendTrade returned error: %v", err)
		}
	}

	svc, err := NewService(trail, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	reporter, err := NewReporter(svc, st, notify.Nop(), 100, nil)
	if err != nil {
		t.Fatalf("NewReporter returned error: %v", err)
	}

	if err := reporter.ExportDaily(ctx); err != nil {
		t.Fatalf("ExportDaily returned error: %v", err)
	}

	row := st.DB().QueryRowContext(ctx,
		`SELECT total_return, win_rate, trade_count FROM daily_report ORDER BY id DESC LIMIT 1`)

	var totalReturn, winRate float64
	var tradeCount int
	if err := row.Scan(&totalReturn, &winRate, &tradeCount); err != nil {
		t.Fatalf("scan daily report: %v", err)
	}

	if math.Abs(totalReturn-1) > 1e-9 {
		t.Errorf("expected total return 1, got %f", totalReturn)
	}
	if math.Abs(winRate-0.5) > 1e-9 {
		t.Errorf("expected win rate 0.5, got %f", winRate)
	}
	if tradeCount != 2 {
		t.Errorf("rejected trades must not count, got %d", tradeCount)
	}
}
