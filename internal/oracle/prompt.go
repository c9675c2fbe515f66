package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"autotrader/internal/evaluator"
	"autotrader/internal/market"
	"autotrader/internal/risk"
)

// promptCandleWindow 限定进入提示词的K线数量。
const promptCandleWindow = 10

const advisoryTemplate = `
你是一个专业的加密货币量化交易员。上游规则引擎刚刚产生了一个候选信号，请结合市场数据判断是否值得执行，并给出具体的交易建议。

候选信号：
- 资产: {{ .Signal.Asset }}
- 方向: {{ .Signal.Direction }}
- 依据: {{ .Signal.Reason }}
- 规则评分: {{ printf "%.2f" .Signal.Score }}

最近K线（1小时）：
{{ .CandlesJSON }}

当前持仓敞口: {{ printf "%.2f" .ExposurePct }}% of portfolio

风控约束：
- 单笔/总仓位上限: {{ printf "%.2f" .MaxPositionPct }}%
- 最低信心要求: {{ printf "%.2f" .MinConfidence }}
- 当前风险模式: {{ .Mode }}

请严格输出唯一的 JSON 对象，格式如下：
{
  "direction": "BUY|SELL",       // 建议方向
  "size": 0.0-1.0,                // 建议仓位（占净值比例，必须大于0）
  "stop_loss": 0.0,               // 止损价格
  "take_profit": 0.0,             // 止盈价格
  "confidence": 0.0-1.0           // 建议信心度
}

注意事项：
- 所有字段均为必填，缺失任何字段都会导致建议被丢弃。
- 若不认可该信号，请给出低 confidence 而不是省略字段。
`

var tmpl = template.Must(template.New("advisory").Parse(advisoryTemplate))

// PromptInput 用于渲染提示词。
type PromptInput struct {
	Signal   evaluator.Signal
	Candles  []market.Candle
	Exposure float64
	Params   risk.Parameters
	Mode     risk.Mode
}

type promptContext struct {
	Signal         evaluator.Signal
	CandlesJSON    string
	ExposurePct    float64
	MaxPositionPct float64
	MinConfidence  float64
	Mode           risk.Mode
}

// BuildPrompt 从最近一段K线、持仓与风控参数渲染提示词。
func BuildPrompt(input PromptInput) (string, error) {
	candles := input.Candles
	if len(candles) > promptCandleWindow {
		candles = candles[len(candles)-promptCandleWindow:]
	}

	candlesJSON, err := json.MarshalIndent(candlesToRows(candles), "", "  ")
	if err != nil {
		return "", fmt.Errorf("oracle: 序列化K线失败: %w", err)
	}

	ctx := promptContext{
		Signal:         input.Signal,
		CandlesJSON:    string(candlesJSON),
		ExposurePct:    input.Exposure * 100,
		MaxPositionPct: input.Params.MaxPositionPercent * 100,
		MinConfidence:  input.Params.MinConfidence,
		Mode:           input.Mode,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("oracle: 渲染提示词失败: %w", err)
	}

	return buf.String(), nil
}

type candleRow struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func candlesToRows(candles []market.Candle) []candleRow {
	rows := make([]candleRow, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, candleRow{
			Time:   c.Timestamp.Format("2006-01-02 15:04"),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return rows
}
