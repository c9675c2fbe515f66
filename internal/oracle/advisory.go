package oracle

import (
	"errors"
	"fmt"
	"strings"
)

// Advisory 表示顾问模型返回的交易建议。
// 未通过 Validate 的响应一律视为不存在，不允许直接取用字段。
type Advisory struct {
	Direction  string  `json:"direction"`
	Size       float64 `json:"size"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Confidence float64 `json:"confidence"`
}

var validDirections = map[string]struct{}{
	"BUY":  {},
	"SELL": {},
}

// Validate 校验建议字段合法性。
func (a Advisory) Validate() error {
	direction := strings.ToUpper(strings.TrimSpace(a.Direction))
	if direction == "" {
		return errors.New("direction 不能为空")
	}
	if _, ok := validDirections[direction]; !ok {
		return fmt.Errorf("direction 字段取值非法: %s", a.Direction)
	}

	if a.Size <= 0 {
		return fmt.Errorf("size 必须大于0，当前为 %f", a.Size)
	}
	if a.StopLoss <= 0 {
		return fmt.Errorf("stop_loss 必须大于0，当前为 %f", a.StopLoss)
	}
	if a.TakeProfit <= 0 {
		return fmt.Errorf("take_profit 必须大于0，当前为 %f", a.TakeProfit)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence 必须在 [0,1] 区间，目前为 %f", a.Confidence)
	}

	return nil
}

// NormalizedDirection 返回大写去空格后的方向。
func (a Advisory) NormalizedDirection() string {
	return strings.ToUpper(strings.TrimSpace(a.Direction))
}
