package gateway

// Side 表示下单方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Order 为一次性消费的委托请求，由决策管线创建，执行器消费后不再复用。
type Order struct {
	Asset    string
	Side     Side
	Quantity float64
	Price    float64 // 参考价，0 表示纯市价
}

// Fill 为网关返回的成交回执。
type Fill struct {
	Price float64
}
