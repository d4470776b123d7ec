package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"strategy-api/internal/model"
)

const systemPrompt = "You are a trading assistant that analyzes stock positions and provides buy/sell recommendations."

const recommendationTemplate = `
Analyze the following stock positions and market data, then provide trading recommendations.

Current Positions: {{ .PositionsJSON }}
Market Summary: {{ .SummaryJSON }}
Market History: {{ .HistoryJSON }}
Date: {{ .Day }}

For each position, decide whether to:
- BUY: Purchase more shares (specify quantity)
- SELL: Sell shares (specify quantity)
- STAY: Hold current position (quantity = 0)

Use the make_trade_recommendation function to provide your recommendations.
`

var tmpl = template.Must(template.New("recommendation").Parse(recommendationTemplate))

// PromptContext 用于渲染提示词。
type PromptContext struct {
	PositionsJSON string
	SummaryJSON   string
	HistoryJSON   string
	Day           string
}

// BuildPrompt 将 tick 载荷渲染成提示词字符串。
func BuildPrompt(payload model.TickPayload, day string) (string, error) {
	positionsJSON, err := json.MarshalIndent(payload.Positions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化持仓失败: %w", err)
	}
	summaryJSON, err := json.MarshalIndent(payload.MarketSummary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化行情摘要失败: %w", err)
	}
	historyJSON, err := json.MarshalIndent(payload.MarketHistory, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化历史行情失败: %w", err)
	}

	ctx := PromptContext{
		PositionsJSON: string(positionsJSON),
		SummaryJSON:   string(summaryJSON),
		HistoryJSON:   string(historyJSON),
		Day:           day,
	}

	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("渲染提示词失败: %w", err)
	}

	return buf.String(), nil
}
