package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"autotrader/internal/notify"
	"autotrader/internal/store"
)

// Reporter 负责生成并持久化每日绩效报告。
type Reporter struct {
	svc      *Service
	db       *sql.DB
	notifier notify.Notifier
	window   int
	logger   *zap.Logger
}

// NewReporter 创建日报导出器并初始化表结构。
func NewReporter(svc *Service, store *store.Store, notifier notify.Notifier, window int, logger *zap.Logger) (*Reporter, error) {
	if svc == nil {
		return nil, fmt.Errorf("analytics: 绩效服务不能为空")
	}
	if store == nil {
		return nil, fmt.Errorf("analytics: store 不能为空")
	}
	if notifier == nil {
		notifier = notify.Nop()
	}
	if window <= 0 {
		window = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reporter{
		svc:      svc,
		db:       store.DB(),
		notifier: notifier,
		window:   window,
		logger:   logger,
	}

	if err := r.initSchema(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Reporter) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS daily_report (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	report_date TEXT NOT NULL,
	total_return REAL NOT NULL,
	win_rate REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	trade_count INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_daily_report_date ON daily_report(report_date);
`
	if _, err := r.db.Exec(stmt); err != nil {
		return fmt.Errorf("analytics: 初始化日报表失败: %w", err)
	}
	return nil
}

// ExportDaily 计算近期绩效、落盘日报并推送告警通道。
func (r *Reporter) ExportDaily(ctx context.Context) error {
	trades, err := r.svc.RecentTrades(ctx, r.window)
	if err != nil {
		return fmt.Errorf("analytics: 导出日报失败: %w", err)
	}

	metrics := r.svc.ComputeMetrics(trades)
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO daily_report (report_date, total_return, win_rate, max_drawdown, trade_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		now.Format("2006-01-02"), metrics.TotalReturn, metrics.WinRate,
		metrics.MaxDrawdown, metrics.Trades, now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("analytics: 写入日报失败: %w", err)
	}

	r.logger.Info("日报已生成",
		zap.Float64("total_return", metrics.TotalReturn),
		zap.Float64("win_rate", metrics.WinRate),
		zap.Float64("max_drawdown", metrics.MaxDrawdown),
		zap.Int("trades", metrics.Trades),
	)

	r.notifier.Notify(ctx, fmt.Sprintf(
		"📊 日报 %s\n累计盈亏: %.2f\n胜率: %.1f%%\n最大回撤: %.2f\n成交笔数: %d",
		now.Format("2006-01-02"), metrics.TotalReturn, metrics.WinRate*100,
		metrics.MaxDrawdown, metrics.Trades,
	))

	return nil
}
