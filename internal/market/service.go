package market

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type candleClient interface {
	Symbol() string
	FetchCandles(ctx context.Context, timeframe string, limit int64) ([]Candle, error)
	FetchOrderBook(ctx context.Context, depth int64) (OrderBook, error)
}

// Service 聚合K线与盘口数据获取。
type Service struct {
	client      candleClient
	timeframe   string
	candleLimit int
	logger      *zap.Logger
}

// NewService 创建行情快照服务。
func NewService(client candleClient, candleLimit int, logger *zap.Logger) *Service {
	if candleLimit <= 0 {
		candleLimit = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:      client,
		timeframe:   "1h",
		candleLimit: candleLimit,
		logger:      logger,
	}
}

// GetSnapshot 并发拉取K线与订单簿，组装为一份快照。
func (s *Service) GetSnapshot(ctx context.Context) (Snapshot, error) {
	var (
		candles   []Candle
		orderBook OrderBook
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		data, err := s.client.FetchCandles(groupCtx, s.timeframe, int64(s.candleLimit))
		if err != nil {
			return err
		}
		candles = data
		return nil
	})

	group.Go(func() error {
		book, err := s.client.FetchOrderBook(groupCtx, 20)
		if err != nil {
			return err
		}
		orderBook = book
		return nil
	})

	if err := group.Wait(); err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		Symbol:      s.client.Symbol(),
		Candles:     candles,
		OrderBook:   orderBook,
		RetrievedAt: time.Now().UTC(),
	}

	s.logger.Debug("行情快照获取完成",
		zap.String("symbol", snapshot.Symbol),
		zap.Int("candle_count", len(snapshot.Candles)),
		zap.Int("order_book_bids", len(snapshot.OrderBook.Bids)),
	)

	return snapshot, nil
}
