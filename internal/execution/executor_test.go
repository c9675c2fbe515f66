package execution

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"autotrader/internal/audit"
	"autotrader/internal/config"
	"autotrader/internal/gateway"
)

// timeoutError 模拟网络超时，满足 net.Error 接口。
type timeoutError struct{}

func (timeoutError) Error() string   { return "request timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type mockGateway struct {
	calls     int
	failTimes int
	failWith  error
	fill      gateway.Fill
}

func (m *mockGateway) PlaceOrder(ctx context.Context, order gateway.Order) (gateway.Fill, error) {
	m.calls++
	if m.calls <= m.failTimes {
		return gateway.Fill{}, m.failWith
	}
	return m.fill, nil
}

type recordingTrail struct {
	entries []audit.AttemptEntry
}

func (r *recordingTrail) AppendAttempt(ctx context.Context, entry audit.AttemptEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func fastExecConfig() config.ExecutionConfig {
	return config.ExecutionConfig{
		RetryInterval: 5 * time.Millisecond,
		RetryDeadline: time.Second,
	}
}

func testOrder() gateway.Order {
	return gateway.Order{
		Asset:    "BTC/USDT:USDT",
		Side:     gateway.SideBuy,
		Quantity: 0.05,
		Price:    50000,
	}
}

func TestPlace_RetriesTransientThenSucceeds(t *testing.T) {
	gw := &mockGateway{failTimes: 2, failWith: timeoutError{}, fill: gateway.Fill{Price: 50100}}
	trail := &recordingTrail{}
	exec := NewExecutor(gw, trail, fastExecConfig(), nil)

	result, err := exec.Place(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if result.Price != 50100 {
		t.Errorf("expected fill price 50100, got %f", result.Price)
	}

	// 每次尝试（含失败）都必须落盘
	if len(trail.entries) != 3 {
		t.Fatalf("expected 3 attempt records, got %d", len(trail.entries))
	}
	if trail.entries[0].Success || trail.entries[1].Success {
		t.Errorf("failed attempts must be recorded as failures")
	}
	if !trail.entries[2].Success || trail.entries[2].Price != 50100 {
		t.Errorf("final attempt record mismatch: %+v", trail.entries[2])
	}
	for i, entry := range trail.entries {
		if entry.Attempt != i+1 {
			t.Errorf("attempt numbering broken at %d: %+v", i, entry)
		}
	}
}

func TestPlace_FatalErrorFailsFast(t *testing.T) {
	gw := &mockGateway{failTimes: 10, failWith: errors.New("insufficient balance")}
	trail := &recordingTrail{}
	exec := NewExecutor(gw, trail, fastExecConfig(), nil)

	_, err := exec.Place(context.Background(), testOrder())
	if err == nil {
		t.Fatalf("expected error on fatal gateway failure")
	}
	if gw.calls != 1 {
		t.Errorf("fatal error must not be retried, got %d calls", gw.calls)
	}
	if len(trail.entries) != 1 {
		t.Errorf("expected a single attempt record, got %d", len(trail.entries))
	}
	if !strings.Contains(err.Error(), "insufficient balance") {
		t.Errorf("error should carry the gateway cause, got %v", err)
	}
}

func TestPlace_GivesUpWhenBudgetExhausted(t *testing.T) {
	gw := &mockGateway{failTimes: 1000, failWith: timeoutError{}}
	trail := &recordingTrail{}
	cfg := config.ExecutionConfig{
		RetryInterval: 10 * time.Millisecond,
		RetryDeadline: 50 * time.Millisecond,
	}
	exec := NewExecutor(gw, trail, cfg, nil)

	start := time.Now()
	_, err := exec.Place(context.Background(), testOrder())
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected error when retry budget is exhausted")
	}
	if gw.calls < 2 {
		t.Errorf("transient error should be retried at least once, got %d calls", gw.calls)
	}
	if elapsed > time.Second {
		t.Errorf("executor overran its wall clock budget: %v", elapsed)
	}
	if len(trail.entries) != gw.calls {
		t.Errorf("every attempt must be recorded: %d records for %d calls", len(trail.entries), gw.calls)
	}
}

func TestPlace_StopsOnContextCancel(t *testing.T) {
	gw := &mockGateway{failTimes: 1000, failWith: timeoutError{}}
	cfg := config.ExecutionConfig{
		RetryInterval: 50 * time.Millisecond,
		RetryDeadline: 10 * time.Second,
	}
	exec := NewExecutor(gw, &recordingTrail{}, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := exec.Place(ctx, testOrder())
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation error, got %v", err)
	}
}
