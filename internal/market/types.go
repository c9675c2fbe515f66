package market

import "time"

// Candle 代表单根K线。
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Level 表示盘口档位。
type Level struct {
	Price  float64
	Amount float64
}

// OrderBook 为订单簿快照。
type OrderBook struct {
	Bids []Level
	Asks []Level
}

// Snapshot 聚合一次决策所需的行情数据。
type Snapshot struct {
	Symbol      string
	Candles     []Candle
	OrderBook   OrderBook
	RetrievedAt time.Time
}

// LastPrice 返回快照中的最新成交参考价。
func (s Snapshot) LastPrice() float64 {
	if len(s.Candles) > 0 {
		return s.Candles[len(s.Candles)-1].Close
	}
	if len(s.OrderBook.Bids) > 0 {
		return s.OrderBook.Bids[0].Price
	}
	if len(s.OrderBook.Asks) > 0 {
		return s.OrderBook.Asks[0].Price
	}
	return 0
}

// Closes 返回所有收盘价序列。
func (s Snapshot) Closes() []float64 {
	closes := make([]float64, 0, len(s.Candles))
	for _, c := range s.Candles {
		closes = append(closes, c.Close)
	}
	return closes
}

// RecentCandles 返回最近 n 根K线。
func (s Snapshot) RecentCandles(n int) []Candle {
	if n <= 0 || n >= len(s.Candles) {
		return s.Candles
	}
	return s.Candles[len(s.Candles)-n:]
}
