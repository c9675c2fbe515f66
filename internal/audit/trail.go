package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"autotrader/internal/store"
)

// Trail 负责持久化审计流水，所有表均为只追加。
type Trail struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTrail 初始化审计存储并创建所需表结构。
func NewTrail(store *store.Store, logger *zap.Logger) (*Trail, error) {
	if store == nil {
		return nil, fmt.Errorf("audit: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Trail{
		db:     store.DB(),
		logger: logger,
	}

	if err := t.initSchema(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Trail) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS trade_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	pnl REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trade_log_symbol ON trade_log(symbol);
CREATE INDEX IF NOT EXISTS idx_trade_log_status ON trade_log(status);
CREATE TABLE IF NOT EXISTS decision_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	symbol TEXT NOT NULL,
	prompt TEXT NOT NULL,
	response TEXT NOT NULL,
	success INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS attempt_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	attempt INTEGER NOT NULL,
	success INTEGER NOT NULL,
	price REAL NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT ''
);
`
	if _, err := t.db.Exec(stmt); err != nil {
		return fmt.Errorf("audit: 初始化表失败: %w", err)
	}
	return nil
}

// AppendTrade 追加一行交易流水。
func (t *Trail) AppendTrade(ctx context.Context, entry TradeEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO trade_log (recorded_at, symbol, side, quantity, price, pnl, status, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339), entry.Symbol, entry.Side,
		entry.Quantity, entry.Price, entry.PnL, string(entry.Status), entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("audit: 写入交易流水失败: %w", err)
	}
	return nil
}

// AppendDecision 追加一行顾问调用审计。
func (t *Trail) AppendDecision(ctx context.Context, entry DecisionEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	success := 0
	if entry.Success {
		success = 1
	}

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO decision_log (recorded_at, symbol, prompt, response, success, reason)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339), entry.Symbol, entry.Prompt,
		entry.Response, success, entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("audit: 写入决策审计失败: %w", err)
	}
	return nil
}

// AppendAttempt 追加一行下单尝试记录。执行器的每次尝试（无论成败）都必须落盘。
func (t *Trail) AppendAttempt(ctx context.Context, entry AttemptEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	success := 0
	if entry.Success {
		success = 1
	}

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO attempt_log (recorded_at, symbol, side, quantity, attempt, success, price, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339), entry.Symbol, entry.Side,
		entry.Quantity, entry.Attempt, success, entry.Price, entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("audit: 写入下单尝试记录失败: %w", err)
	}
	return nil
}

// RecentTrades 按时间倒序返回最近 n 条交易流水。
func (t *Trail) RecentTrades(ctx context.Context, n int) ([]TradeEntry, error) {
	if n <= 0 {
		n = 100
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT recorded_at, symbol, side, quantity, price, pnl, status, reason
		 FROM trade_log ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: 查询交易流水失败: %w", err)
	}
	defer rows.Close()

	entries := make([]TradeEntry, 0, n)
	for rows.Next() {
		var entry TradeEntry
		var recordedAt, status string
		if err := rows.Scan(&recordedAt, &entry.Symbol, &entry.Side,
			&entry.Quantity, &entry.Price, &entry.PnL, &status, &entry.Reason); err != nil {
			return nil, fmt.Errorf("audit: 解析交易流水失败: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339, recordedAt); parseErr == nil {
			entry.Timestamp = ts
		}
		entry.Status = TradeStatus(status)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: 遍历交易流水失败: %w", err)
	}

	return entries, nil
}
